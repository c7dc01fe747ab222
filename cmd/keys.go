package cmd

import (
	logger "github.com/entwineapp/entwine/internal/logging"
	"github.com/entwineapp/entwine/internal/workflows"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose    bool
	debug      bool
	storeFlag  string
	profileDir string
	Logger     logger.Logger

	KeysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Manage your end-to-end encryption identity and shared channel",
		Long:  `Provides identity creation, partner pairing, legacy upgrade, identity repair, and device-to-device key transfer.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing keys command with verbose=%t, debug=%t", verbose, debug)
			cmd.Flags().Visit(func(f *pflag.Flag) {
				Logger.Debugf("Flag %s=%s", f.Name, f.Value)
			})
		},
	}
)

func init() {
	KeysCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	KeysCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	KeysCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "profile store backend: file or postgres (default from ENTWINE_STORE)")
	KeysCmd.PersistentFlags().StringVar(&profileDir, "profile-dir", "", "shared profile directory for the file backend")

	KeysCmd.AddCommand(initCmd)
	KeysCmd.AddCommand(statusCmd)
	KeysCmd.AddCommand(connectCmd)
	KeysCmd.AddCommand(repairCmd)
	KeysCmd.AddCommand(exportCmd)
	KeysCmd.AddCommand(importCmd)
	KeysCmd.AddCommand(syncCodeCmd)
	KeysCmd.AddCommand(redeemCmd)
}

// storeOptions builds the store selection shared by every subcommand.
func storeOptions() workflows.StoreOptions {
	return workflows.StoreOptions{
		Backend:    storeFlag,
		ProfileDir: profileDir,
	}
}

// Helper functions for testing

// GetKeysCmd returns the KeysCmd for testing.
func GetKeysCmd() *cobra.Command {
	return KeysCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	storeFlag = ""
	profileDir = ""
	resetInitCommandState()
	resetStatusCommandState()
	resetConnectCommandState()
	resetExportCommandState()
	resetImportCommandState()
	resetRedeemCommandState()
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
