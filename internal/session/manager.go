package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boris-gans/note-gen/internal/audio"
	"github.com/boris-gans/note-gen/internal/bus"
	"github.com/boris-gans/note-gen/internal/config"
	"github.com/boris-gans/note-gen/internal/export"
	"github.com/boris-gans/note-gen/internal/merge"
	"github.com/boris-gans/note-gen/internal/metrics"
	"github.com/boris-gans/note-gen/internal/notes"
	"github.com/boris-gans/note-gen/internal/outline"
	"github.com/boris-gans/note-gen/internal/store"
	"github.com/boris-gans/note-gen/internal/transcript"
	"github.com/boris-gans/note-gen/internal/transcription"
)

// Polisher rewrites merged notes markdown, preserving citation markers
type Polisher interface {
	Polish(ctx context.Context, notesMarkdown string) (string, error)
}

// Manager owns all live sessions and orchestrates their lifecycle:
// recording, transcription, synthesis, merge and polish.
type Manager struct {
	cfg         *config.Config
	logger      *slog.Logger
	eventBus    *bus.Bus
	metrics     *metrics.Metrics
	db          *store.Store
	transcriber transcription.Transcriber
	synth       notes.Synthesizer
	polisher    Polisher
	engine      *merge.Engine

	mu       sync.RWMutex
	sessions map[string]*Session

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewManager creates a session manager. db and m may be nil in tests;
// persistence and metrics are then skipped.
func NewManager(cfg *config.Config, logger *slog.Logger, eventBus *bus.Bus,
	m *metrics.Metrics, db *store.Store,
	transcriber transcription.Transcriber, synth notes.Synthesizer,
	polisher Polisher) (*Manager, error) {

	engine, err := merge.NewEngine(merge.NewLexicalScorer(), cfg.Merge.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	mgr := &Manager{
		cfg:         cfg,
		logger:      logger,
		eventBus:    eventBus,
		metrics:     m,
		db:          db,
		transcriber: transcriber,
		synth:       synth,
		polisher:    polisher,
		engine:      engine,
		sessions:    make(map[string]*Session),
		ctx:         ctx,
		cancel:      cancel,
		cleanup:     make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr, nil
}

// CreateSession creates a new idle session under a course
func (m *Manager) CreateSession(courseID int64) (*Session, error) {
	var (
		id      string
		number  int
		dataDir string
	)

	if m.db != nil {
		rec, err := m.db.CreateSession(courseID, m.cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to persist session: %w", err)
		}
		id, number, dataDir = rec.ID, rec.SessionNumber, rec.DataDir
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session data dir: %w", err)
		}
	} else {
		id = uuid.NewString()
		number = 1
	}

	now := time.Now()
	session := &Session{
		ID:            id,
		CourseID:      courseID,
		SessionNumber: number,
		DataDir:       dataDir,
		CreatedAt:     now,
		state:         StateIdle,
		lastActivity:  now,
	}

	m.mu.Lock()
	m.sessions[id] = session
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordSessionCreated()
		m.metrics.SetActiveSessions(count)
	}

	m.logger.Info("Session created",
		slog.String("session_id", id),
		slog.Int64("course_id", courseID),
		slog.Int("session_number", number),
	)

	return session, nil
}

// GetSession retrieves a live session. Sessions not held in memory are
// rebuilt from storage, so persisted sessions remain reachable across
// process restarts.
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	session, exists := m.sessions[id]
	m.mu.RUnlock()
	if exists {
		return session, true
	}
	if m.db == nil {
		return nil, false
	}

	session, err := m.rehydrateSession(id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Error("Failed to rehydrate persisted session",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}
	return session, true
}

// rehydrateSession rebuilds an in-memory session from its persisted records:
// transcript chunks, slide outline and note layers. Recording cannot survive
// a restart, so a session persisted as recording comes back stopped.
func (m *Manager) rehydrateSession(id string) (*Session, error) {
	rec, err := m.db.GetSession(id)
	if err != nil {
		return nil, err
	}

	state := State(rec.Status)
	if state == StateRecording {
		state = StateStopped
	}

	session := &Session{
		ID:            rec.ID,
		CourseID:      rec.CourseID,
		SessionNumber: rec.SessionNumber,
		DataDir:       rec.DataDir,
		CreatedAt:     rec.CreatedAt,
		state:         state,
		lastActivity:  rec.UpdatedAt,
	}

	chunkRecs, err := m.db.ChunksForSession(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	if len(chunkRecs) > 0 || state != StateIdle {
		transcripts := transcript.NewStore()
		for _, c := range chunkRecs {
			if err := transcripts.Append(transcript.Chunk{
				Index:      c.ChunkIndex,
				Start:      c.Start,
				End:        c.End,
				Status:     transcript.ChunkStatus(c.Status),
				Text:       c.Text,
				Confidence: c.Confidence,
			}); err != nil {
				return nil, fmt.Errorf("failed to rebuild transcript: %w", err)
			}
		}
		session.transcripts = transcripts
	}

	if outlineRec, err := m.db.OutlineForSession(id); err == nil {
		var sections []outline.Section
		if err := json.Unmarshal([]byte(outlineRec.OutlineJSON), &sections); err != nil {
			return nil, fmt.Errorf("failed to decode outline: %w", err)
		}
		session.outline = sections
		session.outlinePath = outlineRec.FilePath
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load outline: %w", err)
	}

	if layer, err := m.db.GetNoteLayer(id, string(notes.ProvenanceLive)); err == nil {
		var fragments []notes.Fragment
		if layer.FragmentsJSON != "" {
			if err := json.Unmarshal([]byte(layer.FragmentsJSON), &fragments); err != nil {
				return nil, fmt.Errorf("failed to decode live fragments: %w", err)
			}
		}
		session.runner = notes.NewRunner(id, m.synth, session.transcripts,
			m.cfg.Notes.WindowChunks, m.eventBus, m.logger)
		session.runner.Seed(layer.Markdown, fragments)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load live layer: %w", err)
	}

	if layer, err := m.db.GetNoteLayer(id, string(notes.ProvenanceMerged)); err == nil {
		session.mergedMD = layer.Markdown
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load merged layer: %w", err)
	}

	if layer, err := m.db.GetNoteLayer(id, string(notes.ProvenancePolished)); err == nil {
		session.polishedMD = layer.Markdown
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load polished layer: %w", err)
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[id] = session
	count := len(m.sessions)
	m.mu.Unlock()

	if State(rec.Status) == StateRecording {
		m.persistStatus(id, string(StateStopped))
	}
	if m.metrics != nil {
		m.metrics.SetActiveSessions(count)
	}

	m.logger.Info("Session rehydrated from storage",
		slog.String("session_id", id),
		slog.String("state", string(state)),
		slog.Int("chunks", len(chunkRecs)),
	)
	return session, nil
}

// GetActiveSessionCount returns the number of sessions held in memory
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetAllSessions returns a snapshot of all live sessions
func (m *Manager) GetAllSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// AttachOutline attaches a parsed slide outline to a session and persists it
func (m *Manager) AttachOutline(sessionID string, parsed *outline.Outline) error {
	session, exists := m.GetSession(sessionID)
	if !exists {
		return fmt.Errorf("session %s not found", sessionID)
	}

	session.SetOutline(parsed.Sections, parsed.FilePath)

	if m.db != nil {
		outlineJSON, err := json.Marshal(parsed.Sections)
		if err != nil {
			return fmt.Errorf("failed to encode outline: %w", err)
		}
		if err := m.db.SaveOutline(store.OutlineRecord{
			SessionID:   sessionID,
			FilePath:    parsed.FilePath,
			OutlineJSON: string(outlineJSON),
		}); err != nil {
			return fmt.Errorf("failed to persist outline: %w", err)
		}
	}

	if m.metrics != nil {
		m.metrics.RecordOutlineParsed()
	}

	m.logger.Info("Outline attached",
		slog.String("session_id", sessionID),
		slog.String("file", parsed.FilePath),
		slog.Int("sections", len(parsed.Sections)),
	)
	return nil
}

// StartRecording transitions a session from idle to recording and launches
// its finalize loop, transcription worker and synthesis runner
func (m *Manager) StartRecording(sessionID string) error {
	session, exists := m.GetSession(sessionID)
	if !exists {
		return fmt.Errorf("session %s not found", sessionID)
	}

	session.mu.Lock()
	if session.state != StateIdle {
		state := session.state
		session.mu.Unlock()
		return &StateError{SessionID: sessionID, From: state, Op: "start recording on"}
	}

	session.buffer = audio.NewBuffer(m.cfg.Audio.SampleRate, m.cfg.Audio.GetChunkDuration())
	session.transcripts = transcript.NewStore()
	session.runner = notes.NewRunner(sessionID, m.synth, session.transcripts,
		m.cfg.Notes.WindowChunks, m.eventBus, m.logger)
	session.queue = transcription.NewQueue(sessionID, m.cfg.Audio.QueueCapacity,
		m.transcriber, session.transcripts, m.eventBus, m.logger,
		m.onChunkTranscribed(session))
	session.state = StateRecording
	session.recordingStart = time.Now()
	session.lastActivity = time.Now()
	session.chunksDone = 0
	session.mu.Unlock()

	session.queue.Start()
	session.runner.Start()

	finalizeCtx, cancelFinalize := context.WithCancel(m.ctx)
	session.stopFinalize = cancelFinalize
	session.finalizeWG.Add(1)
	go m.finalizeLoop(finalizeCtx, session)

	m.persistStatus(sessionID, string(StateRecording))
	m.publishStatus(sessionID, StateRecording)

	m.logger.Info("Recording started",
		slog.String("session_id", sessionID),
		slog.Int("sample_rate", m.cfg.Audio.SampleRate),
		slog.Float64("chunk_duration", m.cfg.Audio.ChunkDurationSeconds),
	)
	return nil
}

// IngestAudio appends PCM16 audio to a recording session
func (m *Manager) IngestAudio(sessionID string, data []byte) error {
	session, exists := m.GetSession(sessionID)
	if !exists {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return session.IngestPCM(data)
}

// StopRecording flushes residual audio, drains the transcription queue, runs
// the final synthesis pass and transitions the session to stopped
func (m *Manager) StopRecording(ctx context.Context, sessionID string) error {
	session, exists := m.GetSession(sessionID)
	if !exists {
		return fmt.Errorf("session %s not found", sessionID)
	}

	session.mu.Lock()
	if session.state != StateRecording {
		state := session.state
		session.mu.Unlock()
		return &StateError{SessionID: sessionID, From: state, Op: "stop recording on"}
	}
	session.mu.Unlock()

	session.stopFinalize()
	session.finalizeWG.Wait()

	// Cut any complete chunks that accumulated since the last tick, then
	// flush the residual. A non-zero residual always becomes a chunk.
	for _, segment := range session.buffer.PendingSegments() {
		m.enqueueSegment(ctx, session, segment)
	}
	if residual := session.buffer.Flush(); residual != nil {
		m.enqueueSegment(ctx, session, *residual)
	}

	session.queue.Drain()
	session.runner.Stop()

	if err := session.runner.RunFinal(ctx); err != nil {
		m.logger.Error("Final synthesis failed, retaining last draft",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	session.mu.Lock()
	session.state = StateStopped
	session.lastActivity = time.Now()
	duration := session.transcripts.TotalDuration()
	chunks := session.transcripts.Len()
	session.mu.Unlock()

	m.persistStatus(sessionID, string(StateStopped))
	m.persistNoteLayer(sessionID, string(notes.ProvenanceLive), session.LiveDraft(), session.LiveFragments())
	m.publishStatus(sessionID, StateStopped)

	if m.metrics != nil {
		m.metrics.RecordRecordingStopped(duration)
	}

	m.logger.Info("Recording stopped",
		slog.String("session_id", sessionID),
		slog.Int("chunks", chunks),
		slog.Float64("duration", duration),
	)
	return nil
}

// MergeNotes runs the deterministic outline merge over the live fragments.
// On failure the prior merged layer is left untouched.
func (m *Manager) MergeNotes(ctx context.Context, sessionID string) (*merge.Document, error) {
	session, exists := m.GetSession(sessionID)
	if !exists {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}

	state := session.State()
	if state != StateStopped && state != StateMerged {
		return nil, &StateError{SessionID: sessionID, From: state, Op: "merge"}
	}

	fragments := session.LiveFragments()
	if err := notes.NewCitationIndex(fragments).Validate(session.Transcript()); err != nil {
		if m.metrics != nil {
			m.metrics.RecordMerge(true)
		}
		return nil, fmt.Errorf("citation integrity check failed: %w", err)
	}

	doc, err := m.engine.Merge(session.Outline(), fragments, session.Transcript().TotalDuration())
	if err != nil {
		if m.metrics != nil {
			m.metrics.RecordMerge(true)
		}
		return nil, err
	}

	markdown := export.RenderMarkdown(doc)

	session.mu.Lock()
	session.merged = doc
	session.mergedMD = markdown
	session.state = StateMerged
	session.lastActivity = time.Now()
	session.mu.Unlock()

	m.persistStatus(sessionID, string(StateMerged))
	m.persistMergedLayer(sessionID, markdown, doc)
	m.eventBus.Publish(bus.Event{
		Type:      bus.EventMergeCompleted,
		SessionID: sessionID,
		Payload:   map[string]int{"sections": len(doc.Sections)},
	})
	if m.metrics != nil {
		m.metrics.RecordMerge(false)
	}

	m.logger.Info("Merge completed",
		slog.String("session_id", sessionID),
		slog.Int("sections", len(doc.Sections)),
		slog.Int("fragments", len(fragments)),
	)
	return doc, nil
}

// PolishNotes rewrites the merged layer for clarity. Repeatable; only the
// polished layer is ever overwritten.
func (m *Manager) PolishNotes(ctx context.Context, sessionID string) (string, error) {
	session, exists := m.GetSession(sessionID)
	if !exists {
		return "", fmt.Errorf("session %s not found", sessionID)
	}

	state := session.State()
	if state != StateMerged && state != StatePolished {
		return "", &StateError{SessionID: sessionID, From: state, Op: "polish"}
	}

	polished, err := m.polisher.Polish(ctx, session.MergedMarkdown())
	if err != nil {
		return "", fmt.Errorf("polish failed for session %s: %w", sessionID, err)
	}

	session.mu.Lock()
	session.polishedMD = polished
	session.state = StatePolished
	session.lastActivity = time.Now()
	session.mu.Unlock()

	m.persistStatus(sessionID, string(StatePolished))
	m.persistNoteLayer(sessionID, string(notes.ProvenancePolished), polished, nil)
	if m.metrics != nil {
		m.metrics.RecordPolish()
	}

	m.logger.Info("Notes polished", slog.String("session_id", sessionID))
	return polished, nil
}

// RemoveSession aborts a session's workers and removes it. Persisted data is
// deleted as well; sessions are destroyed only by explicit deletion.
func (m *Manager) RemoveSession(sessionID string) bool {
	m.mu.Lock()
	session, exists := m.sessions[sessionID]
	if !exists {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, sessionID)
	count := len(m.sessions)
	m.mu.Unlock()

	if session.State() == StateRecording {
		session.stopFinalize()
		session.finalizeWG.Wait()
		session.queue.Abort()
		session.runner.Stop()
	}

	if m.db != nil {
		if err := m.db.DeleteSession(sessionID); err != nil {
			m.logger.Error("Failed to delete persisted session",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	if m.metrics != nil {
		m.metrics.RecordSessionDeleted()
		m.metrics.SetActiveSessions(count)
	}

	m.logger.Info("Session removed", slog.String("session_id", sessionID))
	return true
}

// Stop gracefully stops the manager and all recording sessions
func (m *Manager) Stop() {
	m.logger.Info("Stopping session manager...")

	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id, session := range m.sessions {
		if session.State() == StateRecording {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range ids {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := m.StopRecording(ctx, id); err != nil {
			m.logger.Error("Failed to stop recording session on shutdown",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}

	m.cancel()
	<-m.cleanup

	m.logger.Info("Session manager stopped",
		slog.Int("remaining_sessions", m.GetActiveSessionCount()),
	)
}

// onChunkTranscribed is invoked by the queue worker after each chunk lands
// in the transcript store, in index order
func (m *Manager) onChunkTranscribed(session *Session) func(transcript.Chunk) {
	return func(chunk transcript.Chunk) {
		session.touch()

		if m.db != nil {
			if err := m.db.SaveChunk(store.ChunkRecord{
				SessionID:  session.ID,
				ChunkIndex: chunk.Index,
				Start:      chunk.Start,
				End:        chunk.End,
				Status:     string(chunk.Status),
				Text:       chunk.Text,
				Confidence: chunk.Confidence,
			}); err != nil {
				m.logger.Error("Failed to persist chunk",
					slog.String("session_id", session.ID),
					slog.Int("chunk_index", chunk.Index),
					slog.String("error", err.Error()),
				)
			}
		}

		if m.metrics != nil {
			m.metrics.SetQueueDepth(session.queue.Depth())
		}

		session.mu.Lock()
		session.chunksDone++
		trigger := session.chunksDone%m.cfg.Notes.IntervalChunks == 0
		session.mu.Unlock()

		if trigger {
			session.runner.Trigger()
		}
	}
}

// finalizeLoop periodically cuts complete chunks out of the session buffer
// and enqueues them for transcription
func (m *Manager) finalizeLoop(ctx context.Context, session *Session) {
	defer session.finalizeWG.Done()

	ticker := time.NewTicker(m.cfg.Audio.GetFinalizeInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, segment := range session.buffer.PendingSegments() {
				m.enqueueSegment(ctx, session, segment)
			}
		}
	}
}

// enqueueSegment encodes one finalized segment as WAV and enqueues it
func (m *Manager) enqueueSegment(ctx context.Context, session *Session, segment audio.Segment) {
	wav, err := audio.EncodeWAV(segment.Samples, session.buffer.SampleRate())
	if err != nil {
		m.logger.Error("Failed to encode chunk audio",
			slog.String("session_id", session.ID),
			slog.Int("chunk_index", segment.Index),
			slog.String("error", err.Error()),
		)
		return
	}

	chunk := transcript.Chunk{
		Index:  segment.Index,
		Start:  segment.Start,
		End:    segment.End,
		Status: transcript.StatusPending,
	}

	m.eventBus.Publish(bus.Event{
		Type:      bus.EventChunkFinalized,
		SessionID: session.ID,
		Payload:   chunk,
	})
	if m.metrics != nil {
		m.metrics.RecordChunkGenerated(segment.End-segment.Start, len(wav))
	}

	if err := session.queue.Enqueue(ctx, transcription.Job{
		Chunk:      chunk,
		Audio:      wav,
		SampleRate: session.buffer.SampleRate(),
	}); err != nil {
		m.logger.Error("Failed to enqueue chunk",
			slog.String("session_id", session.ID),
			slog.Int("chunk_index", segment.Index),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Manager) publishStatus(sessionID string, state State) {
	m.eventBus.Publish(bus.Event{
		Type:      bus.EventRecordingStatus,
		SessionID: sessionID,
		Payload:   map[string]string{"state": string(state)},
	})
}

func (m *Manager) persistStatus(sessionID, status string) {
	if m.db == nil {
		return
	}
	if err := m.db.UpdateSessionStatus(sessionID, status); err != nil {
		m.logger.Error("Failed to persist session status",
			slog.String("session_id", sessionID),
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Manager) persistNoteLayer(sessionID, layer, markdown string, fragments []notes.Fragment) {
	if m.db == nil {
		return
	}
	fragmentsJSON := "[]"
	if len(fragments) > 0 {
		if encoded, err := json.Marshal(fragments); err == nil {
			fragmentsJSON = string(encoded)
		}
	}
	if err := m.db.SaveNoteLayer(store.NoteLayerRecord{
		SessionID:     sessionID,
		Layer:         layer,
		Markdown:      markdown,
		FragmentsJSON: fragmentsJSON,
	}); err != nil {
		m.logger.Error("Failed to persist note layer",
			slog.String("session_id", sessionID),
			slog.String("layer", layer),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Manager) persistMergedLayer(sessionID, markdown string, doc *merge.Document) {
	if m.db == nil {
		return
	}
	var fragments []notes.Fragment
	for _, section := range doc.Sections {
		fragments = append(fragments, section.Fragments...)
	}
	m.persistNoteLayer(sessionID, string(notes.ProvenanceMerged), markdown, fragments)
}

// startCleanupRoutine auto-stops recording sessions that have been inactive
// past the configured timeout
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	m.logger.Info("Session cleanup routine started",
		slog.Duration("timeout", m.cfg.Audio.GetSessionTimeout()),
	)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("Session cleanup routine stopping")
			return
		case <-ticker.C:
			m.stopExpiredSessions()
		}
	}
}

func (m *Manager) stopExpiredSessions() {
	timeout := m.cfg.Audio.GetSessionTimeout()
	now := time.Now()

	m.mu.RLock()
	var expired []string
	for id, session := range m.sessions {
		if session.State() == StateRecording && now.Sub(session.LastActivity()) > timeout {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.logger.Warn("Auto-stopping inactive recording session",
			slog.String("session_id", id),
			slog.Duration("timeout", timeout),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := m.StopRecording(ctx, id); err != nil {
			m.logger.Error("Failed to auto-stop session",
				slog.String("session_id", id),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}
