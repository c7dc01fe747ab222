package cmd

import (
	"github.com/entwineapp/entwine/internal/devicesync"
	"github.com/entwineapp/entwine/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var syncCodeCmd = &cobra.Command{
	Use:   "sync-code",
	Short: "Issues a short-lived 6-digit code for syncing a new device",
	Long: `Uploads an encrypted copy of your private key to your own profile,
protected by a 6-digit code. On the new device, run
'entwine keys redeem --code <code>' within the redemption window.`,
	Run: func(cmd *cobra.Command, args []string) {
		spinner, cleanup := startSpinner("Issuing device sync code...", verbose)
		defer cleanup()

		result, err := workflows.IssueSyncCode(cmd.Context(), workflows.SyncCodeOptions{
			Store:   storeOptions(),
			Verbose: verbose,
			Debug:   debug,
		})
		if err != nil {
			printError("Failed to issue sync code", err)
			return
		}

		finalMessage := color.GreenString("✓") + " Sync code issued: " + color.YellowString(result.Code) + "\n" +
			color.CyanString("→") + " On your new device, run " + color.YellowString("entwine keys redeem --code "+result.Code) + "\n" +
			color.CyanString("→") + " The code expires in " + devicesync.SyncWindow.String() + " (at " + result.ExpiresAt.Format("15:04:05") + ")"
		spinner.FinalMSG = finalMessage
	},
}
