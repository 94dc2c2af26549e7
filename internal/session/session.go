package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/boris-gans/note-gen/internal/audio"
	"github.com/boris-gans/note-gen/internal/merge"
	"github.com/boris-gans/note-gen/internal/notes"
	"github.com/boris-gans/note-gen/internal/outline"
	"github.com/boris-gans/note-gen/internal/transcript"
	"github.com/boris-gans/note-gen/internal/transcription"
)

// State is a session's lifecycle state
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopped   State = "stopped"
	StateMerged    State = "merged"
	StatePolished  State = "polished"
)

// StateError indicates an operation invalid in the session's current state
type StateError struct {
	SessionID string
	From      State
	Op        string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s session %s in state %s", e.Op, e.SessionID, e.From)
}

// Session is one recording event: its lifecycle state, audio buffer,
// transcript ledger, transcription queue and synthesis runner. All mutable
// state is owned by the session and its own workers; sessions never share
// state.
type Session struct {
	ID            string
	CourseID      int64
	SessionNumber int
	DataDir       string
	CreatedAt     time.Time

	mu           sync.RWMutex
	state        State
	lastActivity time.Time
	outline      []outline.Section
	outlinePath  string
	merged       *merge.Document
	mergedMD     string
	polishedMD   string

	recordingStart time.Time
	chunksDone     int

	buffer      *audio.Buffer
	transcripts *transcript.Store
	queue       *transcription.Queue
	runner      *notes.Runner

	stopFinalize func()
	finalizeWG   sync.WaitGroup
}

// State returns the session's current lifecycle state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastActivity returns the time of the session's last audio or API activity
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Outline returns the attached slide outline sections, or nil
func (s *Session) Outline() []outline.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outline
}

// SetOutline attaches (or replaces) the session's slide outline
func (s *Session) SetOutline(sections []outline.Section, filePath string) {
	s.mu.Lock()
	s.outline = sections
	s.outlinePath = filePath
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Transcript returns the session's transcript store, or nil before the
// first recording start
func (s *Session) Transcript() *transcript.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcripts
}

// LiveDraft returns the current live-notes draft
func (s *Session) LiveDraft() string {
	s.mu.RLock()
	runner := s.runner
	s.mu.RUnlock()
	if runner == nil {
		return ""
	}
	return runner.Draft()
}

// LiveFragments returns the current live-layer fragments
func (s *Session) LiveFragments() []notes.Fragment {
	s.mu.RLock()
	runner := s.runner
	s.mu.RUnlock()
	if runner == nil {
		return nil
	}
	return runner.Fragments()
}

// MergedDocument returns the merged document, or nil before merge
func (s *Session) MergedDocument() *merge.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.merged
}

// MergedMarkdown returns the merged layer's markdown rendering
func (s *Session) MergedMarkdown() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mergedMD
}

// PolishedMarkdown returns the polished layer, or empty before polish
func (s *Session) PolishedMarkdown() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.polishedMD
}

// BestMarkdown returns the most refined notes available:
// polished over merged over the live draft
func (s *Session) BestMarkdown() string {
	s.mu.RLock()
	polished, merged := s.polishedMD, s.mergedMD
	s.mu.RUnlock()
	if polished != "" {
		return polished
	}
	if merged != "" {
		return merged
	}
	return s.LiveDraft()
}

// Info is a monitoring snapshot of one session
type Info struct {
	ID            string    `json:"id"`
	CourseID      int64     `json:"course_id"`
	SessionNumber int       `json:"session_number"`
	State         State     `json:"state"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	Chunks        int       `json:"chunks"`
	HasOutline    bool      `json:"has_outline"`
	QueueDepth    int       `json:"queue_depth"`
	FallingBehind bool      `json:"falling_behind"`
}

// GetInfo returns a snapshot of the session for monitoring and APIs
func (s *Session) GetInfo() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		ID:            s.ID,
		CourseID:      s.CourseID,
		SessionNumber: s.SessionNumber,
		State:         s.state,
		CreatedAt:     s.CreatedAt,
		LastActivity:  s.lastActivity,
		HasOutline:    len(s.outline) > 0,
	}
	if s.transcripts != nil {
		info.Chunks = s.transcripts.Len()
	}
	if s.queue != nil {
		info.QueueDepth = s.queue.Depth()
		info.FallingBehind = s.queue.FallingBehind()
	}
	return info
}

// IngestPCM appends little-endian PCM16 audio to the session's buffer.
// Valid only while recording.
func (s *Session) IngestPCM(data []byte) error {
	s.mu.RLock()
	state := s.state
	buffer := s.buffer
	s.mu.RUnlock()

	if state != StateRecording {
		return &StateError{SessionID: s.ID, From: state, Op: "ingest audio into"}
	}
	s.touch()
	return buffer.AppendPCM16(data)
}
