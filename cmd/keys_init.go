package cmd

import (
	"github.com/entwineapp/entwine/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	initEmail string
	initForce bool
)

func init() {
	initCmd.Flags().StringVarP(&initEmail, "email", "e", "", "email address to record on first run")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "regenerate the identity even if one already exists")
}

func resetInitCommandState() {
	initEmail = ""
	initForce = false
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates your encryption identity and bootstraps the shared channel",
	Run: func(cmd *cobra.Command, args []string) {
		spinner, cleanup := startSpinner("Initializing your encryption identity...", verbose)
		defer cleanup()

		result, err := workflows.Init(cmd.Context(), workflows.InitOptions{
			Email:   initEmail,
			Force:   initForce,
			Store:   storeOptions(),
			Verbose: verbose,
			Debug:   debug,
		})
		if err != nil {
			printError("Failed to initialize encryption identity", err)
			return
		}

		finalMessage := ""
		if result.IdentityCreated {
			finalMessage += color.GreenString("✓") + " Encryption identity created for " + color.YellowString(result.UserUUID) + "\n"
		} else {
			finalMessage += color.GreenString("✓") + " Existing encryption identity verified for " + color.YellowString(result.UserUUID) + "\n"
		}
		if result.ChannelCreated {
			finalMessage += color.GreenString("✓") + " Shared channel key created\n" +
				color.CyanString("→") + " Run " + color.YellowString("entwine keys connect --partner <uuid>") + " once your partner has initialized\n"
		} else {
			finalMessage += color.CyanString("→") + " Channel state: " + result.State.DisplayStatus() + "\n"
		}
		finalMessage += color.CyanString("→") + " This device is registered as " + color.YellowString(result.DeviceName)

		spinner.FinalMSG = finalMessage
	},
}
