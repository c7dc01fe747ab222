package cmd

import (
	"github.com/entwineapp/entwine/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repairs a broken identity or upgrades a legacy channel",
	Long: `Rebuilds your encryption identity when the private key on this device no
longer matches your published public key, and upgrades legacy raw-key
channels to end-to-end encryption.

If the shared key cannot be recovered through the legacy field, repair
generates a fresh keypair. Anything wrapped under the old public key,
including the copy your partner delivered to you, becomes permanently
unreadable and must be re-delivered with 'entwine keys connect'.`,
	Run: func(cmd *cobra.Command, args []string) {
		spinner, cleanup := startSpinner("Repairing encryption identity...", verbose)
		defer cleanup()

		result, err := workflows.Repair(cmd.Context(), workflows.RepairOptions{
			Store:   storeOptions(),
			Verbose: verbose,
			Debug:   debug,
		})
		if err != nil {
			printError("Failed to repair encryption identity", err)
			return
		}

		finalMessage := ""
		switch {
		case result.RecoveredFromLegacy:
			finalMessage = color.GreenString("✓") + " Shared key recovered and upgraded to end-to-end encryption\n"
		case result.Regenerated:
			finalMessage = color.GreenString("✓") + " Fresh encryption identity generated\n"
		default:
			finalMessage = color.GreenString("✓") + " Identity verified, nothing to repair\n"
		}
		if result.OrphansOldKey {
			finalMessage += color.RedString("⚠") + " Keys wrapped under your previous identity are now unreadable\n" +
				color.CyanString("→") + " Your partner must run " + color.YellowString("entwine keys connect") + " to re-deliver the shared key\n"
		}
		finalMessage += color.CyanString("→") + " Channel state: " + result.State.DisplayStatus()
		spinner.FinalMSG = finalMessage
	},
}
