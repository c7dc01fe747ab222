package cmd

import (
	"errors"

	kerrors "github.com/entwineapp/entwine/internal/errors"
	"github.com/entwineapp/entwine/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var connectPartnerUUID string

func init() {
	connectCmd.Flags().StringVarP(&connectPartnerUUID, "partner", "p", "", "UUID of the partner to pair with")
	if err := connectCmd.MarkFlagRequired("partner"); err != nil {
		printError("Failed to mark --partner flag as required", err)
		return
	}
}

func resetConnectCommandState() {
	connectPartnerUUID = ""
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Pairs you with your partner and delivers them the shared channel key",
	Run: func(cmd *cobra.Command, args []string) {
		spinner, cleanup := startSpinner("Pairing with partner...", verbose)
		defer cleanup()

		result, err := workflows.Connect(cmd.Context(), workflows.ConnectOptions{
			PartnerUUID: connectPartnerUUID,
			Store:       storeOptions(),
			Verbose:     verbose,
			Debug:       debug,
		})
		if errors.Is(err, kerrors.ErrNoIdentity) {
			finalMessage := color.RedString("✗") + " Partner " + color.YellowString(connectPartnerUUID) + " has not published a public key\n" +
				color.CyanString("→") + " They must first run: " + color.YellowString("entwine keys init")
			spinner.FinalMSG = finalMessage
			return
		}
		if errors.Is(err, kerrors.ErrPrecursorNotReady) {
			finalMessage := color.RedString("✗") + " Your own channel key is not ready yet\n" +
				color.CyanString("→") + " Run " + color.YellowString("entwine keys status") + " to see what is missing"
			spinner.FinalMSG = finalMessage
			return
		}
		if err != nil {
			printError("Failed to pair with partner", err)
			return
		}

		finalMessage := color.GreenString("✓") + " Paired with " + color.YellowString(result.PartnerUUID) + "\n" +
			color.CyanString("→") + " They now hold a copy of the shared channel key wrapped under their own identity"
		spinner.FinalMSG = finalMessage
	},
}
