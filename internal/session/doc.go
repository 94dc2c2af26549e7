// Package session ties the pipeline together: the per-session lifecycle
// state machine and the manager that owns audio buffers, transcription
// queues and synthesis runners for all live sessions.
package session
