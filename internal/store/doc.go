// Package store is the SQLite persistence layer: courses, sessions,
// transcript chunks, slide outlines, note layers and study artifacts.
package store
