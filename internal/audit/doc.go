// Package audit appends identity and key operations to a local jsonl trail.
//
// The trail lives next to the user's config, one JSON object per line, and
// records what happened and when, never key material. Writes are
// best-effort: an operation never fails because its audit entry could not
// be written.
package audit
