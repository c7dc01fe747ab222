// Package e2ee wraps the cryptographic primitives used by the Entwine
// end-to-end encryption layer.
//
// The hybrid scheme is AES-256-GCM for message and media content, with the
// single shared channel key wrapped under each partner's RSA-2048-OAEP
// public key. Keys cross package boundaries in a transportable text form:
// standard DER interchange encodings (PKIX for public keys, PKCS#8 for
// private keys, raw bytes for symmetric keys) carried as standard base64.
//
// All functions are pure apart from reads of crypto/rand. Nothing in this
// package performs I/O or caches key material.
package e2ee
