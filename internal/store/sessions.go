package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = sql.ErrNoRows

// CreateCourse inserts a course and returns it. Course names are unique.
func (s *Store) CreateCourse(name string) (*Course, error) {
	now := time.Now().Unix()
	res, err := s.db.Exec(`INSERT INTO courses (name, created_at) VALUES (?, ?)`, name, now)
	if err != nil {
		return nil, fmt.Errorf("insert course: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("course id: %w", err)
	}
	return &Course{ID: id, Name: name, CreatedAt: time.Unix(now, 0)}, nil
}

// ListCourses returns all courses ordered by creation time
func (s *Store) ListCourses() ([]Course, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM courses ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []Course
	for rows.Next() {
		var c Course
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		c.CreatedAt = time.Unix(createdAt, 0)
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetCourse returns one course by id
func (s *Store) GetCourse(id int64) (*Course, error) {
	var c Course
	var createdAt int64
	err := s.db.QueryRow(`SELECT id, name, created_at FROM courses WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scan course: %w", err)
	}
	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}

// CreateSession inserts a session with a generated id. The session number is
// the next free number within the course; the data directory is a
// per-session subdirectory of baseDir.
func (s *Store) CreateSession(courseID int64, baseDir string) (*SessionRecord, error) {
	var next int
	err := s.db.QueryRow(
		`SELECT COALESCE(MAX(session_number), 0) + 1 FROM sessions WHERE course_id = ?`,
		courseID).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("next session number: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().Unix()
	rec := &SessionRecord{
		ID:            id,
		CourseID:      courseID,
		SessionNumber: next,
		Status:        "idle",
		DataDir:       filepath.Join(baseDir, id),
		CreatedAt:     time.Unix(now, 0),
		UpdatedAt:     time.Unix(now, 0),
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (id, course_id, session_number, status, data_dir, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CourseID, rec.SessionNumber, rec.Status, rec.DataDir, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return rec, nil
}

// GetSession returns one session by id
func (s *Store) GetSession(id string) (*SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, course_id, session_number, status, data_dir, created_at, updated_at
		 FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// ListSessions returns all sessions for a course ordered by session number
func (s *Store) ListSessions(courseID int64) ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, course_id, session_number, status, data_dir, created_at, updated_at
		 FROM sessions WHERE course_id = ? ORDER BY session_number ASC`, courseID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var createdAt, updatedAt int64
		if err := rows.Scan(&rec.ID, &rec.CourseID, &rec.SessionNumber, &rec.Status,
			&rec.DataDir, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		rec.UpdatedAt = time.Unix(updatedAt, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpdateSessionStatus sets the session's lifecycle state
func (s *Store) UpdateSessionStatus(id, status string) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSession removes a session and everything recorded under it
func (s *Store) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transcript_chunks", "slide_outlines", "note_layers", "study_artifacts"} {
		if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE session_id = ?`, table), id); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return tx.Commit()
}

func scanSession(row *sql.Row) (*SessionRecord, error) {
	var rec SessionRecord
	var createdAt, updatedAt int64
	err := row.Scan(&rec.ID, &rec.CourseID, &rec.SessionNumber, &rec.Status,
		&rec.DataDir, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}
