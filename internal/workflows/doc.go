// Package workflows implements the operations behind Entwine CLI commands.
//
// Each workflow takes a context and an Options struct, performs the
// operation using the internal packages, and returns a Result struct the
// command layer renders. Workflows own sequencing (identity before channel,
// classification before migration) and audit logging; the command layer
// owns spinners, colors, and exit codes.
package workflows
