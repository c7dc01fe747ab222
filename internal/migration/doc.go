// Package migration upgrades profiles from the legacy raw shared-key
// scheme, where the channel key sat base64-encoded on the profile document,
// to the hybrid scheme where it only ever appears wrapped under an identity
// public key.
//
// The upgrade is idempotent and decided from field presence alone, so it
// can be re-triggered safely from realtime listeners and explicit repair
// commands alike. The legacy field is deliberately left in place after a
// successful upgrade so older app versions keep working during rollout.
package migration
