package cmd

import (
	"fmt"

	"github.com/entwineapp/entwine/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	exportQRPath   string
	exportTerminal bool
)

func init() {
	exportCmd.Flags().StringVar(&exportQRPath, "qr", "", "write the payload as a QR code image to this path")
	exportCmd.Flags().BoolVar(&exportTerminal, "terminal", false, "render the payload as a QR code in the terminal")
}

func resetExportCommandState() {
	exportQRPath = ""
	exportTerminal = false
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exports your identity for transfer to another device",
	Long: `Prints your private key payload for manual transfer to a second device.
Treat the output like a password: anyone holding it can read your channel.

Use --qr or --terminal to render the payload as a QR code the other
device can scan, then run 'entwine keys import' there.`,
	Run: func(cmd *cobra.Command, args []string) {
		spinner, cleanup := startSpinner("Exporting identity...", verbose)

		result, err := workflows.Export(cmd.Context(), workflows.ExportOptions{
			QRPath:   exportQRPath,
			Terminal: exportTerminal,
			Store:    storeOptions(),
			Verbose:  verbose,
			Debug:    debug,
		})
		if err != nil {
			cleanup()
			printError("Failed to export identity", err)
			return
		}

		finalMessage := color.GreenString("✓") + " Identity exported for " + color.YellowString(result.UserUUID) + "\n"
		if result.QRPath != "" {
			finalMessage += color.CyanString("→") + " QR code written to " + color.YellowString(result.QRPath) + "\n"
		}
		finalMessage += color.RedString("⚠") + " Treat this payload like a password\n"
		// The payload itself is printed after the spinner is gone so it can
		// be piped or scanned cleanly.
		spinner.FinalMSG = finalMessage
		cleanup()

		if result.TerminalQR != "" {
			fmt.Println(result.TerminalQR)
		}
		if result.QRPath == "" && !exportTerminal {
			fmt.Println(result.Payload)
		}
	},
}
