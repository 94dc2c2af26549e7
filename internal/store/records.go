package store

import (
	"fmt"
	"time"
)

// SaveChunk persists one transcript chunk. Chunks are immutable once written;
// a duplicate (session, index) pair is an error.
func (s *Store) SaveChunk(rec ChunkRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO transcript_chunks (session_id, chunk_index, start_time, end_time, status, text, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.ChunkIndex, rec.Start, rec.End, rec.Status, rec.Text, rec.Confidence, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

// ChunksForSession returns a session's chunks in index order
func (s *Store) ChunksForSession(sessionID string) ([]ChunkRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, chunk_index, start_time, end_time, status, text, confidence
		 FROM transcript_chunks WHERE session_id = ? ORDER BY chunk_index ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var records []ChunkRecord
	for rows.Next() {
		var rec ChunkRecord
		if err := rows.Scan(&rec.SessionID, &rec.ChunkIndex, &rec.Start, &rec.End,
			&rec.Status, &rec.Text, &rec.Confidence); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveOutline upserts the slide outline for a session. A session has at most
// one outline; re-uploading slides replaces it.
func (s *Store) SaveOutline(rec OutlineRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO slide_outlines (session_id, file_path, outline_json, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   file_path = excluded.file_path,
		   outline_json = excluded.outline_json,
		   created_at = excluded.created_at`,
		rec.SessionID, rec.FilePath, rec.OutlineJSON, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert outline: %w", err)
	}
	return nil
}

// OutlineForSession returns the session's slide outline
func (s *Store) OutlineForSession(sessionID string) (*OutlineRecord, error) {
	var rec OutlineRecord
	var createdAt int64
	err := s.db.QueryRow(
		`SELECT session_id, file_path, outline_json, created_at
		 FROM slide_outlines WHERE session_id = ?`, sessionID).
		Scan(&rec.SessionID, &rec.FilePath, &rec.OutlineJSON, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scan outline: %w", err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}

// SaveNoteLayer upserts one note layer for a session. Each of the live,
// merged and polished layers is stored once and overwritten whole.
func (s *Store) SaveNoteLayer(rec NoteLayerRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO note_layers (session_id, layer, markdown, fragments_json, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, layer) DO UPDATE SET
		   markdown = excluded.markdown,
		   fragments_json = excluded.fragments_json,
		   updated_at = excluded.updated_at`,
		rec.SessionID, rec.Layer, rec.Markdown, rec.FragmentsJSON, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert note layer: %w", err)
	}
	return nil
}

// GetNoteLayer returns one note layer for a session
func (s *Store) GetNoteLayer(sessionID, layer string) (*NoteLayerRecord, error) {
	var rec NoteLayerRecord
	var updatedAt int64
	err := s.db.QueryRow(
		`SELECT session_id, layer, markdown, fragments_json, updated_at
		 FROM note_layers WHERE session_id = ? AND layer = ?`, sessionID, layer).
		Scan(&rec.SessionID, &rec.Layer, &rec.Markdown, &rec.FragmentsJSON, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan note layer: %w", err)
	}
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

// SaveStudyArtifact upserts a study guide or quiz for a session
func (s *Store) SaveStudyArtifact(rec StudyArtifactRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO study_artifacts (session_id, kind, content, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, kind) DO UPDATE SET
		   content = excluded.content,
		   created_at = excluded.created_at`,
		rec.SessionID, rec.Kind, rec.Content, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert study artifact: %w", err)
	}
	return nil
}

// GetStudyArtifact returns one study artifact for a session
func (s *Store) GetStudyArtifact(sessionID, kind string) (*StudyArtifactRecord, error) {
	var rec StudyArtifactRecord
	var createdAt int64
	err := s.db.QueryRow(
		`SELECT session_id, kind, content, created_at
		 FROM study_artifacts WHERE session_id = ? AND kind = ?`, sessionID, kind).
		Scan(&rec.SessionID, &rec.Kind, &rec.Content, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scan study artifact: %w", err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	return &rec, nil
}
