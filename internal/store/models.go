package store

import "time"

// Course groups sessions under one course name
type Course struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRecord is the persisted form of a recording session
type SessionRecord struct {
	ID            string    `json:"id"`
	CourseID      int64     `json:"course_id"`
	SessionNumber int       `json:"session_number"`
	Status        string    `json:"status"`
	DataDir       string    `json:"data_dir"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChunkRecord is the persisted form of one transcript chunk
type ChunkRecord struct {
	SessionID  string  `json:"session_id"`
	ChunkIndex int     `json:"chunk_index"`
	Start      float64 `json:"start_time"`
	End        float64 `json:"end_time"`
	Status     string  `json:"status"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// OutlineRecord is the persisted slide outline for a session
type OutlineRecord struct {
	SessionID   string    `json:"session_id"`
	FilePath    string    `json:"file_path"`
	OutlineJSON string    `json:"outline_json"`
	CreatedAt   time.Time `json:"created_at"`
}

// NoteLayerRecord is one persisted note layer (live, merged or polished)
type NoteLayerRecord struct {
	SessionID     string    `json:"session_id"`
	Layer         string    `json:"layer"`
	Markdown      string    `json:"markdown"`
	FragmentsJSON string    `json:"fragments_json"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StudyArtifactRecord is a persisted study guide or quiz
type StudyArtifactRecord struct {
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
