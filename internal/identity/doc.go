// Package identity manages the per-user asymmetric keypair: generation,
// local persistence of the private half, and publication of the public half
// to the remote profile document.
//
// The package enforces the two identity invariants: the private key never
// leaves local device storage through any path in this package, and every
// remote write touches only the public key field. A private key without a
// published public key is non-functional (nobody can wrap keys for this
// user); a published public key without the local private key is a broken
// identity, recoverable only through device sync or an explicit repair.
package identity
