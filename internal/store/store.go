package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store persists courses, sessions, transcript chunks, slide outlines, note
// layers and study artifacts in SQLite.
type Store struct {
	db *sql.DB
}

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		course_id INTEGER NOT NULL,
		session_number INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'idle',
		data_dir TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (course_id) REFERENCES courses(id),
		UNIQUE(course_id, session_number)
	)`,
	`CREATE TABLE IF NOT EXISTS transcript_chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		start_time REAL NOT NULL,
		end_time REAL NOT NULL,
		status TEXT NOT NULL,
		text TEXT NOT NULL,
		confidence REAL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id),
		UNIQUE(session_id, chunk_index)
	)`,
	`CREATE TABLE IF NOT EXISTS slide_outlines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		file_path TEXT NOT NULL,
		outline_json TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	)`,
	`CREATE TABLE IF NOT EXISTS note_layers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		layer TEXT NOT NULL,
		markdown TEXT NOT NULL,
		fragments_json TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id),
		UNIQUE(session_id, layer)
	)`,
	`CREATE TABLE IF NOT EXISTS study_artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id),
		UNIQUE(session_id, kind)
	)`,
}

// Open opens (or creates) the database at path with WAL journaling and
// creates any missing tables
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
