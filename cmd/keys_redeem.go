package cmd

import (
	"errors"

	kerrors "github.com/entwineapp/entwine/internal/errors"
	"github.com/entwineapp/entwine/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var redeemCode string

func init() {
	redeemCmd.Flags().StringVarP(&redeemCode, "code", "c", "", "6-digit code shown on the source device")
	if err := redeemCmd.MarkFlagRequired("code"); err != nil {
		printError("Failed to mark --code flag as required", err)
		return
	}
}

func resetRedeemCommandState() {
	redeemCode = ""
}

var redeemCmd = &cobra.Command{
	Use:   "redeem",
	Short: "Redeems a sync code to install your identity on this device",
	Run: func(cmd *cobra.Command, args []string) {
		spinner, cleanup := startSpinner("Redeeming sync code...", verbose)
		defer cleanup()

		err := workflows.RedeemSyncCode(cmd.Context(), workflows.SyncCodeOptions{
			Code:    redeemCode,
			Store:   storeOptions(),
			Verbose: verbose,
			Debug:   debug,
		})
		if errors.Is(err, kerrors.ErrSyncExpired) {
			finalMessage := color.RedString("✗") + " This sync code has expired\n" +
				color.CyanString("→") + " Run " + color.YellowString("entwine keys sync-code") + " on the source device to get a fresh one"
			spinner.FinalMSG = finalMessage
			return
		}
		if errors.Is(err, kerrors.ErrDecryptFailed) {
			finalMessage := color.RedString("✗") + " Wrong code, nothing was changed\n" +
				color.CyanString("→") + " Double-check the 6 digits shown on the source device"
			spinner.FinalMSG = finalMessage
			return
		}
		if errors.Is(err, kerrors.ErrNoSyncPayload) {
			finalMessage := color.RedString("✗") + " No sync payload found on your profile\n" +
				color.CyanString("→") + " Run " + color.YellowString("entwine keys sync-code") + " on the source device first"
			spinner.FinalMSG = finalMessage
			return
		}
		if err != nil {
			printError("Failed to redeem sync code", err)
			return
		}

		finalMessage := color.GreenString("✓") + " Identity installed on this device\n" +
			color.CyanString("→") + " Run " + color.YellowString("entwine keys status") + " to confirm the channel unlocked"
		spinner.FinalMSG = finalMessage
	},
}
