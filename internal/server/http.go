package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boris-gans/note-gen/internal/bus"
	"github.com/boris-gans/note-gen/internal/config"
	"github.com/boris-gans/note-gen/internal/export"
	"github.com/boris-gans/note-gen/internal/metrics"
	"github.com/boris-gans/note-gen/internal/notes"
	"github.com/boris-gans/note-gen/internal/outline"
	"github.com/boris-gans/note-gen/internal/session"
	"github.com/boris-gans/note-gen/internal/store"
	"github.com/boris-gans/note-gen/internal/study"
)

// HTTPServer provides the HTTP API for session management, audio ingest,
// notes retrieval and exports
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	manager  *session.Manager
	study    *study.Service
	provider outline.Provider
	db       *store.Store
	eventBus *bus.Bus
	metrics  *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates the HTTP API server
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, manager *session.Manager,
	studySvc *study.Service, provider outline.Provider, db *store.Store,
	eventBus *bus.Bus, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    cfg,
		manager:   manager,
		study:     studySvc,
		provider:  provider,
		db:        db,
		eventBus:  eventBus,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Courses and sessions
	mux.HandleFunc("POST /courses", h.withMetrics("/courses", h.handleCreateCourse))
	mux.HandleFunc("GET /courses", h.withMetrics("/courses", h.handleListCourses))
	mux.HandleFunc("POST /courses/{courseID}/sessions", h.withMetrics("/courses/{id}/sessions", h.handleCreateSession))
	mux.HandleFunc("GET /courses/{courseID}/sessions", h.withMetrics("/courses/{id}/sessions", h.handleListSessions))
	mux.HandleFunc("GET /sessions", h.withMetrics("/sessions", h.handleActiveSessions))
	mux.HandleFunc("GET /sessions/{id}", h.withMetrics("/sessions/{id}", h.handleSessionDetail))
	mux.HandleFunc("DELETE /sessions/{id}", h.withMetrics("/sessions/{id}", h.handleDeleteSession))

	// Recording lifecycle and audio ingest
	mux.HandleFunc("POST /sessions/{id}/record/start", h.withMetrics("/sessions/{id}/record/start", h.handleStartRecording))
	mux.HandleFunc("POST /sessions/{id}/record/stop", h.withMetrics("/sessions/{id}/record/stop", h.handleStopRecording))
	mux.HandleFunc("POST /sessions/{id}/audio", h.withMetrics("/sessions/{id}/audio", h.handleIngestAudio))

	// Slide outlines
	mux.HandleFunc("POST /sessions/{id}/outline", h.withMetrics("/sessions/{id}/outline", h.handleUploadOutline))
	mux.HandleFunc("GET /sessions/{id}/outline", h.withMetrics("/sessions/{id}/outline", h.handleGetOutline))

	// Notes layers and post-lecture operations
	mux.HandleFunc("GET /sessions/{id}/transcript", h.withMetrics("/sessions/{id}/transcript", h.handleGetTranscript))
	mux.HandleFunc("GET /sessions/{id}/citations", h.withMetrics("/sessions/{id}/citations", h.handleCitationLookup))
	mux.HandleFunc("GET /sessions/{id}/notes", h.withMetrics("/sessions/{id}/notes", h.handleGetNotes))
	mux.HandleFunc("POST /sessions/{id}/merge", h.withMetrics("/sessions/{id}/merge", h.handleMerge))
	mux.HandleFunc("POST /sessions/{id}/polish", h.withMetrics("/sessions/{id}/polish", h.handlePolish))

	// Study material
	mux.HandleFunc("POST /sessions/{id}/study/guide", h.withMetrics("/sessions/{id}/study/guide", h.handleGenerateGuide))
	mux.HandleFunc("GET /sessions/{id}/study/guide", h.withMetrics("/sessions/{id}/study/guide", h.handleGetGuide))
	mux.HandleFunc("POST /sessions/{id}/study/quiz", h.withMetrics("/sessions/{id}/study/quiz", h.handleGenerateQuiz))
	mux.HandleFunc("GET /sessions/{id}/study/quiz", h.withMetrics("/sessions/{id}/study/quiz", h.handleGetQuiz))

	// Export
	mux.HandleFunc("GET /sessions/{id}/export", h.withMetrics("/sessions/{id}/export", h.handleExport))

	// Live channel (websocket)
	mux.HandleFunc("GET /sessions/{id}/live", h.handleLive)

	// Monitoring
	mux.HandleFunc("GET /health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("GET /stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("GET /config", h.withMetrics("/config", h.handleConfig))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := strconv.Itoa(ww.statusCode)
		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")
	return h.server.Shutdown(ctx)
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *HTTPServer) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeOperationError maps pipeline errors onto HTTP status codes:
// lifecycle violations are conflicts, unknown sessions are not found.
func (h *HTTPServer) writeOperationError(w http.ResponseWriter, err error) {
	var stateErr *session.StateError
	switch {
	case errors.As(err, &stateErr):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *HTTPServer) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "course name required")
		return
	}

	course, err := h.db.CreateCourse(req.Name)
	if err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, course)
}

func (h *HTTPServer) handleListCourses(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	courses, err := h.db.ListCourses()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
}

func (h *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(r.PathValue("courseID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid course ID")
		return
	}

	if h.db != nil {
		if _, err := h.db.GetCourse(courseID); err != nil {
			h.writeError(w, http.StatusNotFound, "course not found")
			return
		}
	}

	sess, err := h.manager.CreateSession(courseID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, sess.GetInfo())
}

func (h *HTTPServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		h.writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	courseID, err := strconv.ParseInt(r.PathValue("courseID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid course ID")
		return
	}

	records, err := h.db.ListSessions(courseID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sessions": records})
}

func (h *HTTPServer) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.manager.GetAllSessions()
	infos := make([]session.Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.GetInfo())
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(infos),
		"sessions": infos,
	})
}

func (h *HTTPServer) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sess, exists := h.manager.GetSession(r.PathValue("id"))
	if !exists {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	h.writeJSON(w, http.StatusOK, sess.GetInfo())
}

func (h *HTTPServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.manager.RemoveSession(r.PathValue("id")) {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPServer) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.manager.StartRecording(id); err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "state": string(session.StateRecording)})
}

func (h *HTTPServer) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.manager.StopRecording(r.Context(), id); err != nil {
		h.writeOperationError(w, err)
		return
	}

	sess, _ := h.manager.GetSession(id)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"state":      string(session.StateStopped),
		"chunks":     sess.Transcript().Len(),
		"duration":   sess.Transcript().TotalDuration(),
	})
}

// handleUploadOutline accepts a multipart slide file, parses it through the
// configured provider and attaches the result to the session
func (h *HTTPServer) handleUploadOutline(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, exists := h.manager.GetSession(id)
	if !exists {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	if !h.provider.Supports(header.Filename) {
		h.writeError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported slide format: %s", filepath.Ext(header.Filename)))
		return
	}

	dir := sess.DataDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to store slide file")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		h.writeError(w, http.StatusInternalServerError, "failed to store slide file")
		return
	}
	dst.Close()

	parsed, err := h.provider.Parse(r.Context(), path)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.manager.AttachOutline(id, parsed); err != nil {
		h.writeOperationError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"file":       header.Filename,
		"sections":   len(parsed.Sections),
	})
}

func (h *HTTPServer) handleGetOutline(w http.ResponseWriter, r *http.Request) {
	sess, exists := h.manager.GetSession(r.PathValue("id"))
	if !exists {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	sections := sess.Outline()
	if sections == nil {
		h.writeError(w, http.StatusNotFound, "no outline attached")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"sections": sections})
}

// handleGetTranscript returns the session's chunk records in index order
func (h *HTTPServer) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	sess, exists := h.manager.GetSession(r.PathValue("id"))
	if !exists {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	ts := sess.Transcript()
	if ts == nil {
		h.writeError(w, http.StatusConflict, "session has not recorded yet")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"duration":   ts.TotalDuration(),
		"chunks":     ts.All(),
	})
}

// handleCitationLookup returns the fragments whose citations overlap the
// given time point (t, seconds) or cite the given chunk index
func (h *HTTPServer) handleCitationLookup(w http.ResponseWriter, r *http.Request) {
	sess, exists := h.manager.GetSession(r.PathValue("id"))
	if !exists {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	index := notes.NewCitationIndex(sess.LiveFragments())

	query := r.URL.Query()
	switch {
	case query.Has("t"):
		timePoint, err := strconv.ParseFloat(query.Get("t"), 64)
		if err != nil || timePoint < 0 {
			h.writeError(w, http.StatusBadRequest, "t must be a non-negative number of seconds")
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{
			"session_id": sess.ID,
			"fragments":  index.FragmentsAt(timePoint),
		})

	case query.Has("chunk"):
		chunkIndex, err := strconv.Atoi(query.Get("chunk"))
		if err != nil || chunkIndex < 0 {
			h.writeError(w, http.StatusBadRequest, "chunk must be a non-negative index")
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{
			"session_id": sess.ID,
			"fragments":  index.FragmentsForChunk(chunkIndex),
		})

	default:
		h.writeError(w, http.StatusBadRequest, "t or chunk query parameter required")
	}
}

// handleGetNotes returns one notes layer. The layer query parameter selects
// live, merged or polished; the default is the most refined layer available.
func (h *HTTPServer) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	sess, exists := h.manager.GetSession(r.PathValue("id"))
	if !exists {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	layer := r.URL.Query().Get("layer")
	var notes string
	switch layer {
	case "", "best":
		notes = sess.BestMarkdown()
	case "live":
		notes = sess.LiveDraft()
	case "merged":
		notes = sess.MergedMarkdown()
	case "polished":
		notes = sess.PolishedMarkdown()
	default:
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown layer %q", layer))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"state":      sess.State(),
		"layer":      layer,
		"notes":      notes,
	})
}

func (h *HTTPServer) handleMerge(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := h.manager.MergeNotes(r.Context(), id)
	if err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *HTTPServer) handlePolish(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	polished, err := h.manager.PolishNotes(r.Context(), id)
	if err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "notes": polished})
}

func (h *HTTPServer) handleGenerateGuide(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, exists := h.manager.GetSession(id)
	if !exists {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	guide, err := h.study.Guide(r.Context(), id, sess.BestMarkdown())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "guide": guide})
}

func (h *HTTPServer) handleGetGuide(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	guide, err := h.study.StoredGuide(id)
	if err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "guide": guide})
}

func (h *HTTPServer) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, exists := h.manager.GetSession(id)
	if !exists {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	numQuestions := 0
	if n := r.URL.Query().Get("n"); n != "" {
		parsed, err := strconv.Atoi(n)
		if err != nil || parsed < 1 || parsed > 50 {
			h.writeError(w, http.StatusBadRequest, "n must be between 1 and 50")
			return
		}
		numQuestions = parsed
	}

	questions, err := h.study.Quiz(r.Context(), id, sess.BestMarkdown(), numQuestions)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "questions": questions})
}

func (h *HTTPServer) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	questions, err := h.study.StoredQuiz(id)
	if err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "questions": questions})
}

// handleExport serves the session's notes as markdown or docx. The format
// query parameter selects the output; markdown is the default.
func (h *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, exists := h.manager.GetSession(id)
	if !exists {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}

	markdown := sess.BestMarkdown()
	if markdown == "" {
		h.writeError(w, http.StatusConflict, "session has no notes to export")
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="session-%d-notes.md"`, sess.SessionNumber))
		io.WriteString(w, markdown)

	case "docx":
		dir := sess.DataDir
		if dir == "" {
			dir = os.TempDir()
		}
		path := filepath.Join(dir, fmt.Sprintf("session-%d-notes.docx", sess.SessionNumber))
		title := fmt.Sprintf("Lecture Notes, Session %d", sess.SessionNumber)
		if err := export.WriteDocx(title, markdown, path); err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="session-%d-notes.docx"`, sess.SessionNumber))
		http.ServeFile(w, r, path)

	default:
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
	}
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)

	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]any{
			"name":    "note-gen",
			"version": "1.0.0",
		},
		"components": map[string]any{
			"session_manager": map[string]any{
				"status":          "running",
				"active_sessions": h.manager.GetActiveSessionCount(),
			},
			"persistence": map[string]any{
				"enabled": h.db != nil,
			},
		},
	}

	h.writeJSON(w, http.StatusOK, health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	sessions := h.manager.GetAllSessions()

	recording := 0
	chunks := 0
	for _, s := range sessions {
		info := s.GetInfo()
		if info.State == session.StateRecording {
			recording++
		}
		chunks += info.Chunks
	}

	stats := map[string]any{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"sessions": map[string]any{
			"active":    len(sessions),
			"recording": recording,
		},
		"chunks_total": chunks,
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// handleConfig implements the /config endpoint. API keys are omitted.
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	sanitized := map[string]any{
		"http": map[string]any{
			"port":    h.config.HTTP.Port,
			"address": h.config.HTTP.Address,
		},
		"audio": map[string]any{
			"sample_rate":            h.config.Audio.SampleRate,
			"channels":               h.config.Audio.Channels,
			"bit_depth":              h.config.Audio.BitDepth,
			"chunk_duration_seconds": h.config.Audio.ChunkDurationSeconds,
			"queue_capacity":         h.config.Audio.QueueCapacity,
		},
		"transcription": map[string]any{
			"endpoint":       h.config.Transcription.Endpoint,
			"timeout":        h.config.Transcription.Timeout,
			"max_retries":    h.config.Transcription.MaxRetries,
			"max_concurrent": h.config.Transcription.MaxConcurrent,
		},
		"notes": map[string]any{
			"window_chunks":   h.config.Notes.WindowChunks,
			"interval_chunks": h.config.Notes.IntervalChunks,
		},
		"merge": map[string]any{
			"score_threshold": h.config.Merge.ScoreThreshold,
		},
		"llm": map[string]any{
			"model":   h.config.LLM.Model,
			"timeout": h.config.LLM.Timeout,
		},
		"logging": map[string]any{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	h.writeJSON(w, http.StatusOK, sanitized)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	apiDoc := map[string]any{
		"service": "Lecture Note Generation Service",
		"version": "1.0.0",
		"endpoints": map[string]any{
			"POST /courses":                       "Create a course",
			"GET /courses":                        "List courses",
			"POST /courses/{id}/sessions":         "Create a session under a course",
			"GET /courses/{id}/sessions":          "List a course's sessions",
			"GET /sessions":                       "List active in-memory sessions",
			"GET /sessions/{id}":                  "Get session details",
			"DELETE /sessions/{id}":               "Delete a session and its data",
			"POST /sessions/{id}/record/start":    "Start recording",
			"POST /sessions/{id}/record/stop":     "Stop recording and finalize",
			"POST /sessions/{id}/audio":           "Ingest PCM16 audio",
			"POST /sessions/{id}/outline":         "Upload a slide outline",
			"GET /sessions/{id}/outline":          "Get the attached outline",
			"GET /sessions/{id}/transcript":       "Get the chunked transcript",
			"GET /sessions/{id}/citations":        "Look up fragments by time point or chunk",
			"GET /sessions/{id}/notes":            "Get a notes layer (live/merged/polished)",
			"POST /sessions/{id}/merge":           "Merge live notes against the outline",
			"POST /sessions/{id}/polish":          "Polish the merged notes",
			"POST /sessions/{id}/study/guide":     "Generate a study guide",
			"GET /sessions/{id}/study/guide":      "Get the stored study guide",
			"POST /sessions/{id}/study/quiz":      "Generate a quiz",
			"GET /sessions/{id}/study/quiz":       "Get the stored quiz",
			"GET /sessions/{id}/export":           "Export notes (markdown or docx)",
			"GET /sessions/{id}/live (websocket)": "Live event channel",
			"GET /health":                         "Service health check",
			"GET /stats":                          "Service statistics",
			"GET /config":                         "Get service configuration",
			"GET /metrics":                        "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	h.writeJSON(w, http.StatusOK, apiDoc)
}
