// Package profile models the remote per-user profile document that carries
// the published identity, the wrapped shared channel key, the legacy raw key
// field, and the transient device-sync payload.
//
// The document database itself is an external collaborator. This package
// defines the narrow Store, KeyDeliverer, and Watcher interfaces the key
// subsystem needs, plus three backends:
//
//   - MemoryStore: in-process, with realtime Watch fan-out. Used by tests and
//     anywhere a live listener is exercised.
//   - FileStore: one JSON document per user in a shared directory, Watch via
//     filesystem notification. The CLI default.
//   - GormStore: rows in a relational database for hosted deployments.
package profile
