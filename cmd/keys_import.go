package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	kerrors "github.com/entwineapp/entwine/internal/errors"
	"github.com/entwineapp/entwine/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var importPayload string

func init() {
	importCmd.Flags().StringVar(&importPayload, "payload", "", "exported identity payload (read from stdin if omitted)")
}

func resetImportCommandState() {
	importPayload = ""
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Installs an identity exported from another device",
	Run: func(cmd *cobra.Command, args []string) {
		payload := importPayload
		if payload == "" {
			fmt.Print("Paste the exported payload: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				printError("Failed to read payload from stdin", err)
				return
			}
			payload = strings.TrimSpace(line)
		}

		spinner, cleanup := startSpinner("Importing identity...", verbose)
		defer cleanup()

		err := workflows.Import(cmd.Context(), workflows.ImportOptions{
			Payload: payload,
			Store:   storeOptions(),
			Verbose: verbose,
			Debug:   debug,
		})
		if errors.Is(err, kerrors.ErrKeyFormat) {
			finalMessage := color.RedString("✗") + " That does not look like an exported identity payload\n" +
				color.CyanString("→") + " Run " + color.YellowString("entwine keys export") + " on the source device and copy its output exactly"
			spinner.FinalMSG = finalMessage
			return
		}
		if err != nil {
			printError("Failed to import identity", err)
			return
		}

		finalMessage := color.GreenString("✓") + " Identity installed on this device\n" +
			color.CyanString("→") + " Run " + color.YellowString("entwine keys status") + " to confirm the channel unlocked"
		spinner.FinalMSG = finalMessage
	},
}
