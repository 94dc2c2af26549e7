package transcription

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/boris-gans/note-gen/internal/bus"
	"github.com/boris-gans/note-gen/internal/transcript"
)

// Job is one pending chunk transcription: the chunk record plus its
// WAV-encoded audio
type Job struct {
	Chunk      transcript.Chunk
	Audio      []byte
	SampleRate int
}

// Queue is a bounded FIFO of transcription jobs for one session, consumed
// by a single worker so chunks complete strictly in index order. When the
// queue is full, Enqueue blocks and the session is flagged falling behind
// via the event bus rather than dropping chunks.
type Queue struct {
	sessionID     string
	transcriber   Transcriber
	store         *transcript.Store
	eventBus      *bus.Bus
	logger        *slog.Logger
	onTranscribed func(transcript.Chunk)

	jobs          chan Job
	fallingBehind atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewQueue creates a transcription queue for one session. onTranscribed is
// invoked from the worker after each chunk lands in the store (transcribed
// or failed), in index order.
func NewQueue(sessionID string, capacity int, transcriber Transcriber,
	store *transcript.Store, eventBus *bus.Bus, logger *slog.Logger,
	onTranscribed func(transcript.Chunk)) *Queue {

	if capacity < 1 {
		capacity = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		sessionID:     sessionID,
		transcriber:   transcriber,
		store:         store,
		eventBus:      eventBus,
		logger:        logger,
		onTranscribed: onTranscribed,
		jobs:          make(chan Job, capacity),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches the single worker goroutine
func (q *Queue) Start() {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for job := range q.jobs {
			if q.ctx.Err() != nil {
				return
			}
			q.process(job)
		}
	}()
}

// Enqueue adds a job. Non-blocking when capacity allows; otherwise it
// publishes a falling-behind event once and blocks until the worker frees a
// slot or the context is cancelled. Chunks are never dropped.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.jobs <- job:
		q.fallingBehind.Store(false)
		return nil
	default:
	}

	if q.fallingBehind.CompareAndSwap(false, true) {
		q.logger.Warn("Transcription queue full, session falling behind",
			slog.String("session_id", q.sessionID),
			slog.Int("chunk_index", job.Chunk.Index),
		)
		q.eventBus.Publish(bus.Event{
			Type:      bus.EventFallingBehind,
			SessionID: q.sessionID,
			Payload:   map[string]int{"chunk_index": job.Chunk.Index},
		})
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return q.ctx.Err()
	}
}

// Drain closes the queue and waits for the worker to process every job
// already enqueued. In-flight work always finishes; used at session stop.
func (q *Queue) Drain() {
	q.closeOnce.Do(func() { close(q.jobs) })
	q.wg.Wait()
}

// Abort cancels outstanding scheduling and releases the worker without
// processing remaining jobs. An in-flight transcription still runs to
// completion. Used at session delete.
func (q *Queue) Abort() {
	q.cancel()
	q.closeOnce.Do(func() { close(q.jobs) })
	q.wg.Wait()
}

// FallingBehind reports whether the producer is currently outrunning the worker
func (q *Queue) FallingBehind() bool {
	return q.fallingBehind.Load()
}

// Depth returns the number of queued jobs not yet picked up
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// process transcribes one chunk and appends the outcome to the store.
// A failure never stalls the pipeline: the chunk is recorded as a gap with
// its time range preserved and empty text, and the worker moves on.
func (q *Queue) process(job Job) {
	chunk := job.Chunk
	chunk.Status = transcript.StatusTranscribing

	result, err := q.transcriber.Transcribe(q.ctx, Request{
		SessionID:  q.sessionID,
		ChunkIndex: chunk.Index,
		Start:      chunk.Start,
		End:        chunk.End,
		SampleRate: job.SampleRate,
		Audio:      job.Audio,
	})

	if err != nil {
		chunk.Status = transcript.StatusFailed
		chunk.Text = ""
		if tErr, ok := err.(*TranscriptionError); ok {
			chunk.Retries = tErr.Attempts - 1
		}

		q.logger.Error("Chunk transcription failed, recording gap",
			slog.String("session_id", q.sessionID),
			slog.Int("chunk_index", chunk.Index),
			slog.String("error", err.Error()),
		)

		if appendErr := q.store.Append(chunk); appendErr != nil {
			q.logger.Error("Failed to record gap chunk",
				slog.String("session_id", q.sessionID),
				slog.Int("chunk_index", chunk.Index),
				slog.String("error", appendErr.Error()),
			)
			return
		}

		q.eventBus.Publish(bus.Event{
			Type:      bus.EventChunkFailed,
			SessionID: q.sessionID,
			Payload:   chunk,
		})

		if q.onTranscribed != nil {
			q.onTranscribed(chunk)
		}
		return
	}

	chunk.Status = transcript.StatusTranscribed
	chunk.Text = result.Text
	chunk.Confidence = result.Confidence
	chunk.Words = result.Words

	if appendErr := q.store.Append(chunk); appendErr != nil {
		q.logger.Error("Failed to append transcribed chunk",
			slog.String("session_id", q.sessionID),
			slog.Int("chunk_index", chunk.Index),
			slog.String("error", appendErr.Error()),
		)
		return
	}

	q.logger.Info("Chunk transcribed",
		slog.String("session_id", q.sessionID),
		slog.Int("chunk_index", chunk.Index),
		slog.Float64("start_time", chunk.Start),
		slog.Float64("end_time", chunk.End),
		slog.Int("text_length", len(chunk.Text)),
	)

	q.eventBus.Publish(bus.Event{
		Type:      bus.EventChunkTranscribed,
		SessionID: q.sessionID,
		Payload:   chunk,
	})

	if q.onTranscribed != nil {
		q.onTranscribed(chunk)
	}
}
