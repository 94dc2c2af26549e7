// Package transcription provides the HTTP client for the external
// transcription capability and the per-session bounded queue that feeds it,
// enforcing in-order completion, bounded retry, and gap-marking on failure.
package transcription
