// Package server exposes the HTTP API: course and session management,
// audio ingest, notes retrieval, merge/polish/study operations, exports
// and the websocket live channel.
package server
