// Package transcript defines the chunk data model and the append-only,
// time-ordered ledger of transcribed chunks for a session.
package transcript
