// Package logger provides leveled logging for Entwine CLI commands.
//
// The logger supports multiple verbosity levels controlled by command-line
// flags. Output is formatted with semantic prefixes and colors.
//
// # Verbosity Levels
//
// Logging behavior is controlled by two flags:
//
//   - --verbose: Shows info messages
//   - --debug: Shows all messages including debug details
//
// Warnings and errors are always shown on stderr. Cryptographic failures are
// logged as diagnostics and downgraded to state transitions by callers; the
// logger never prints key material at any level.
//
// # Usage
//
// Create a logger with the desired verbosity:
//
//	log := logger.Logger{Verbose: verbose, Debug: debug}
//	log.Infof("channel resolved for %s", userID)
//
// Commands typically create a logger in their PersistentPreRun and pass it
// to internal functions.
package logger
