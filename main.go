package main

import (
	"fmt"
	"os"

	"github.com/entwineapp/entwine/cmd"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "entwine",
	Short: "Entwine - End-to-end encryption for your shared space.",
	Long: `Entwine keeps everything you share with your partner readable only by
the two of you. Each of you holds a private key that never leaves your
devices; the shared channel key travels wrapped under each other's
public keys.

Usage:
  entwine <command> [flags]

Available Commands:
  keys    Manage your encryption identity and shared channel

Run 'entwine help <command>' for more details on a specific command.
`,
	Run: func(cmd *cobra.Command, args []string) {
		banner := figure.NewColorFigure("Entwine", "alligator2", "green", true)
		banner.Print()
		fmt.Println()
		fmt.Println("Run 'entwine --help' to see available commands.")
	},
}

func init() {
	rootCmd.AddCommand(cmd.KeysCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
