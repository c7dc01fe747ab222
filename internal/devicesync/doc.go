// Package devicesync authorizes a second device to hold an existing
// identity without re-pairing.
//
// Both mechanisms move the same thing: the exported private key text. The
// direct path renders it as a QR payload or copyable text and the target
// device imports it verbatim. The code path parks an encrypted copy on the
// user's own profile document, protected by a key derived from a 6-digit
// code; the payload expires five minutes after creation, enforced purely by
// wall-clock comparison at redemption.
package devicesync
