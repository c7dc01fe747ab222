// Package configs manages user-level configuration for the Entwine CLI.
//
// The user config (config.toml under the OS config directory) records the
// user's UUID, email, device name, and partner UUID. The local keystore path
// and config path are machine-scoped settings initialized at startup.
// Profile store selection (file directory vs postgres) comes from flags or
// the environment, with optional .env loading.
package configs
