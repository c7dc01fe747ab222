package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/entwineapp/entwine/internal/channel"
	"github.com/entwineapp/entwine/internal/ui"
	"github.com/entwineapp/entwine/internal/workflows"

	"github.com/spf13/cobra"
)

var statusJSONOutput bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "output in JSON format")
}

func resetStatusCommandState() {
	statusJSONOutput = false
}

// statusReport is the machine-readable shape of the status command output.
type statusReport struct {
	UserUUID        string `json:"user_uuid"`
	DeviceName      string `json:"device_name"`
	State           string `json:"state"`
	Display         string `json:"display"`
	HasLocalKey     bool   `json:"has_local_key"`
	HasPublishedKey bool   `json:"has_published_key"`
	HasWrappedKey   bool   `json:"has_wrapped_key"`
	HasLegacyKey    bool   `json:"has_legacy_key"`
	SyncPending     bool   `json:"sync_pending"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current encryption state of your shared channel",
	Long: `Classifies your identity and shared channel without changing anything.

The state is one of:
  - unlocked: identity and shared key are usable on this device
  - locked:   identity is healthy but no key has been delivered yet
  - legacy:   an old raw-key channel exists and will be upgraded
  - broken:   a published identity exists with no matching private key
  - none:     no identity exists yet

Use --json for machine-readable output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		result, err := workflows.Status(cmd.Context(), workflows.StatusOptions{
			Store:   storeOptions(),
			Verbose: verbose,
			Debug:   debug,
		})
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read channel status: %v", err)
		}

		if statusJSONOutput {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(statusReport{
				UserUUID:        result.UserUUID,
				DeviceName:      result.DeviceName,
				State:           result.State.String(),
				Display:         result.Display,
				HasLocalKey:     result.HasLocalKey,
				HasPublishedKey: result.HasPublishedKey,
				HasWrappedKey:   result.HasWrappedKey,
				HasLegacyKey:    result.HasLegacyKey,
				SyncPending:     result.SyncPending,
			})
		}

		printStatus(result)
		return nil
	},
}

func printStatus(result *workflows.StatusResult) {
	fmt.Printf("User:   %s\n", ui.Value.Sprint(result.UserUUID))
	fmt.Printf("Device: %s\n", ui.Value.Sprint(result.DeviceName))
	fmt.Printf("State:  %s\n", ui.Value.Sprint(result.Display))
	fmt.Println()

	printCheck("Private key on this device", result.HasLocalKey)
	printCheck("Public key published", result.HasPublishedKey)
	printCheck("Shared key delivered", result.HasWrappedKey)
	if result.HasLegacyKey {
		fmt.Println("  " + ui.Failure.Sprint("⚠") + " legacy raw key still present")
	}
	if result.SyncPending {
		fmt.Println("  " + ui.Hint.Sprint("◌") + " device sync code pending redemption")
	}

	fmt.Println()
	switch result.State {
	case channel.StateNoIdentity:
		fmt.Println(ui.Hint.Sprint("→") + " Run " + ui.Code.Sprint("entwine keys init") + " to create your identity")
	case channel.StateLocked:
		fmt.Println(ui.Hint.Sprint("→") + " Waiting for your partner to run " + ui.Code.Sprint("entwine keys connect"))
	case channel.StateLegacy:
		fmt.Println(ui.Hint.Sprint("→") + " Run " + ui.Code.Sprint("entwine keys repair") + " to upgrade to end-to-end encryption")
	case channel.StateBroken:
		fmt.Println(ui.Hint.Sprint("→") + " Run " + ui.Code.Sprint("entwine keys import") + " on this device, or " + ui.Code.Sprint("entwine keys repair") + " to start over")
	}
}

func printCheck(label string, ok bool) {
	if ok {
		fmt.Println("  " + ui.Success.Sprint("✓") + " " + label)
		return
	}
	fmt.Println("  " + ui.Failure.Sprint("✗") + " " + label)
}
