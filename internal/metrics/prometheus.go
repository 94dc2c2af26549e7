package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the note generation service
type Metrics struct {
	// Session metrics
	ActiveSessions   prometheus.Gauge
	SessionsCreated  prometheus.Counter
	SessionsDeleted  prometheus.Counter
	RecordingSeconds prometheus.Histogram

	// Audio chunking metrics
	ChunksGenerated prometheus.Counter
	ChunkDuration   prometheus.Histogram
	ChunkSize       prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	TranscriptionRetries   prometheus.Counter
	QueueDepth             prometheus.Gauge

	// Synthesis metrics
	SynthesisRuns     prometheus.Counter
	SynthesisFailures prometheus.Counter
	SynthesisDuration prometheus.Histogram

	// Merge and study metrics
	MergeRuns       prometheus.Counter
	MergeFailures   prometheus.Counter
	PolishRuns      prometheus.Counter
	StudyGenerated  *prometheus.CounterVec
	OutlinesParsed  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec

	// Event bus metrics
	EventsPublished *prometheus.CounterVec
	EventsDropped   prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "notegen_active_sessions",
			Help: "Current number of active recording sessions",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_sessions_deleted_total",
			Help: "Total number of sessions deleted",
		}),
		RecordingSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "notegen_recording_duration_seconds",
			Help:    "Duration of completed recordings in seconds",
			Buckets: prometheus.ExponentialBuckets(60, 2, 8), // 1 minute to ~2 hours
		}),

		// Audio chunking metrics
		ChunksGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_audio_chunks_generated_total",
			Help: "Total number of audio chunks finalized",
		}),
		ChunkDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "notegen_chunk_duration_seconds",
			Help:    "Duration of finalized audio chunks",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 9), // 0.5s to ~4 minutes
		}),
		ChunkSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "notegen_chunk_size_bytes",
			Help:    "Size of finalized audio chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		// Transcription metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_transcription_failures_total",
			Help: "Total number of transcription requests that exhausted retries",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "notegen_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		TranscriptionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_transcription_retries_total",
			Help: "Total number of transcription request retries",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "notegen_transcription_queue_depth",
			Help: "Current number of chunks waiting for transcription",
		}),

		// Synthesis metrics
		SynthesisRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_synthesis_runs_total",
			Help: "Total number of note synthesis calls",
		}),
		SynthesisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_synthesis_failures_total",
			Help: "Total number of failed note synthesis calls",
		}),
		SynthesisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "notegen_synthesis_duration_seconds",
			Help:    "Duration of note synthesis calls",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~2 minutes
		}),

		// Merge and study metrics
		MergeRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_merge_runs_total",
			Help: "Total number of outline merge runs",
		}),
		MergeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_merge_failures_total",
			Help: "Total number of failed outline merge runs",
		}),
		PolishRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_polish_runs_total",
			Help: "Total number of note polish runs",
		}),
		StudyGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "notegen_study_artifacts_generated_total",
			Help: "Total number of study artifacts generated",
		}, []string{"kind"}),
		OutlinesParsed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_outlines_parsed_total",
			Help: "Total number of slide outlines parsed",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "notegen_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notegen_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "notegen_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),

		// Event bus metrics
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "notegen_events_published_total",
			Help: "Total number of events published on the bus",
		}, []string{"type"}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notegen_events_dropped_total",
			Help: "Total number of events dropped by slow subscribers",
		}),
	}
}

// SetActiveSessions sets the current number of active sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionCreated increments the sessions created counter
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionDeleted increments the sessions deleted counter
func (m *Metrics) RecordSessionDeleted() {
	m.SessionsDeleted.Inc()
}

// RecordRecordingStopped records a completed recording's duration
func (m *Metrics) RecordRecordingStopped(durationSeconds float64) {
	m.RecordingSeconds.Observe(durationSeconds)
}

// RecordChunkGenerated records a finalized audio chunk
func (m *Metrics) RecordChunkGenerated(durationSeconds float64, sizeBytes int) {
	m.ChunksGenerated.Inc()
	m.ChunkDuration.Observe(durationSeconds)
	m.ChunkSize.Observe(float64(sizeBytes))
}

// RecordTranscriptionRequest increments the transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a transcription that exhausted retries
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionRetry increments the retry counter
func (m *Metrics) RecordTranscriptionRetry() {
	m.TranscriptionRetries.Inc()
}

// SetQueueDepth sets the current transcription queue depth
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// RecordSynthesis records a synthesis call and its outcome
func (m *Metrics) RecordSynthesis(durationSeconds float64, failed bool) {
	m.SynthesisRuns.Inc()
	m.SynthesisDuration.Observe(durationSeconds)
	if failed {
		m.SynthesisFailures.Inc()
	}
}

// RecordMerge records a merge run and its outcome
func (m *Metrics) RecordMerge(failed bool) {
	m.MergeRuns.Inc()
	if failed {
		m.MergeFailures.Inc()
	}
}

// RecordPolish increments the polish runs counter
func (m *Metrics) RecordPolish() {
	m.PolishRuns.Inc()
}

// RecordStudyArtifact records a generated study guide or quiz
func (m *Metrics) RecordStudyArtifact(kind string) {
	m.StudyGenerated.WithLabelValues(kind).Inc()
}

// RecordOutlineParsed increments the outlines parsed counter
func (m *Metrics) RecordOutlineParsed() {
	m.OutlinesParsed.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

// RecordEventPublished records an event published on the bus
func (m *Metrics) RecordEventPublished(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventsDropped adds to the dropped events counter
func (m *Metrics) RecordEventsDropped(count uint64) {
	m.EventsDropped.Add(float64(count))
}
