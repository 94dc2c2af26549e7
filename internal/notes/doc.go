// Package notes holds the citation data model binding note fragments to
// chunk time ranges, the bidirectional citation index, and the per-session
// synthesis runner that keeps at most one synthesis call in flight.
package notes
