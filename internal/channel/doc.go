// Package channel manages the single symmetric key two paired users share.
//
// The channel is a small state machine over one profile document snapshot
// plus the local private key. Evaluate is the pure decision function; the
// Session applies its verdict, caches the resolved key in memory for the
// lifetime of the authenticated session, and re-runs the whole decision
// tree on every realtime listener firing. Re-application is idempotent, so
// repeated firings against an unchanged document are no-ops.
package channel
