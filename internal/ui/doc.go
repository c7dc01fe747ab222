// Package ui provides semantic text formatting for CLI output.
//
// This package defines formatters for different types of content (code,
// paths, states, etc.) that render appropriately based on terminal
// capabilities. When colors are available, content is colorized. When
// NO_COLOR is set or the terminal doesn't support colors, text-based
// decorations (backticks) are used instead.
//
// Use the appropriate formatter for the content type:
//
//	ui.Code.Sprint("entwine keys init")    // Commands and code
//	ui.Path.Sprint("~/entwine-profiles")   // File paths
//	ui.Success.Sprint("✓")                  // Success indicators
//	ui.Failure.Sprint("✗")                  // Failure indicators
//	ui.Hint.Sprint("→")                     // Follow-up hints
//	ui.Value.Sprint("unlocked")            // States, codes, and IDs
//
// Colors are disabled when the NO_COLOR environment variable is set (any
// value) or the terminal doesn't support colors (TERM=dumb, not a TTY).
package ui
