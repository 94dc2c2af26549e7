package notes

import (
	"context"
	"log/slog"
	"sync"

	"github.com/boris-gans/note-gen/internal/bus"
	"github.com/boris-gans/note-gen/internal/transcript"
)

// SynthesisRequest carries the rolling window and prior draft into one
// synthesis call. The operation is a pure function of this input, so a
// run is replayable without live state.
type SynthesisRequest struct {
	SessionID string
	Window    []transcript.Chunk
	Draft     string
}

// SynthesisResult is the updated notes draft plus the fragments derived
// from the window, each citing the chunks that contributed to it
type SynthesisResult struct {
	Draft     string
	Fragments []Fragment
}

// Synthesizer is the external note synthesis capability (LLM-backed)
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
}

// Runner serializes synthesis calls for one session. At most one call is in
// flight at a time; triggers arriving mid-flight collapse into a single
// pending slot, so the next run folds in all chunks completed meanwhile
// instead of racing to overwrite the same draft.
type Runner struct {
	sessionID    string
	synth        Synthesizer
	store        *transcript.Store
	windowChunks int
	eventBus     *bus.Bus
	logger       *slog.Logger

	trigger chan struct{} // single slot; coalesces bursts

	mu        sync.RWMutex
	draft     string
	fragments []Fragment

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a synthesis runner for one session
func NewRunner(sessionID string, synth Synthesizer, store *transcript.Store,
	windowChunks int, eventBus *bus.Bus, logger *slog.Logger) *Runner {

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		sessionID:    sessionID,
		synth:        synth,
		store:        store,
		windowChunks: windowChunks,
		eventBus:     eventBus,
		logger:       logger,
		trigger:      make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Start launches the runner loop
func (r *Runner) Start() {
	go func() {
		defer close(r.done)
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-r.trigger:
				r.runOnce(r.ctx)
			}
		}
	}()
}

// Trigger requests a synthesis run. Non-blocking: if a run is already
// pending or in flight, the request coalesces into the next run.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Stop halts the runner loop. An in-flight synthesis finishes; its result
// is still applied.
func (r *Runner) Stop() {
	r.cancel()
	<-r.done
}

// RunFinal executes one last synchronous synthesis over the full window,
// used at stop time after the transcription queue has drained
func (r *Runner) RunFinal(ctx context.Context) error {
	return r.runOnce(ctx)
}

// runOnce snapshots the window and draft, invokes the capability, and on
// success folds the result into the live layer: fragments citing only
// chunks that precede the current window survive unchanged, while the
// in-window tail is replaced by the new run's output. On failure the
// previous draft is retained unchanged and the failure is surfaced via the
// bus; the missed window is naturally included in the next run.
func (r *Runner) runOnce(ctx context.Context) error {
	window := r.store.Window(r.windowChunks)
	if len(window) == 0 {
		return nil
	}
	windowStart := window[0].Index

	r.mu.RLock()
	draft := r.draft
	r.mu.RUnlock()

	result, err := r.synth.Synthesize(ctx, SynthesisRequest{
		SessionID: r.sessionID,
		Window:    window,
		Draft:     draft,
	})
	if err != nil {
		synthErr := &SynthesisError{SessionID: r.sessionID, Err: err}
		r.logger.Warn("Note synthesis failed, retaining previous draft",
			slog.String("session_id", r.sessionID),
			slog.String("error", err.Error()),
		)
		r.eventBus.Publish(bus.Event{
			Type:      bus.EventSynthesisFailed,
			SessionID: r.sessionID,
			Payload:   map[string]string{"error": err.Error()},
		})
		return synthErr
	}

	for i := range result.Fragments {
		result.Fragments[i].Provenance = ProvenanceLive
		result.Fragments[i].Normalize()
	}

	r.mu.Lock()
	kept := make([]Fragment, 0, len(r.fragments)+len(result.Fragments))
	for _, frag := range r.fragments {
		if citesBefore(frag, windowStart) {
			kept = append(kept, frag)
		}
	}
	r.draft = result.Draft
	r.fragments = append(kept, result.Fragments...)
	fragmentCount := len(r.fragments)
	r.mu.Unlock()

	r.logger.Debug("Live notes updated",
		slog.String("session_id", r.sessionID),
		slog.Int("window_chunks", len(window)),
		slog.Int("fragments", fragmentCount),
	)
	r.eventBus.Publish(bus.Event{
		Type:      bus.EventNotesUpdated,
		SessionID: r.sessionID,
		Payload:   map[string]any{"notes": result.Draft, "fragments": fragmentCount},
	})
	return nil
}

// citesBefore reports whether every citation of the fragment references a
// chunk earlier than the given index. Fragments without citations are
// considered in-window and get superseded by the new run.
func citesBefore(frag Fragment, index int) bool {
	if len(frag.Citations) == 0 {
		return false
	}
	for _, c := range frag.Citations {
		if c.ChunkIndex >= index {
			return false
		}
	}
	return true
}

// Seed restores a previously persisted draft and fragment set, used when a
// session is rebuilt from storage
func (r *Runner) Seed(draft string, fragments []Fragment) {
	r.mu.Lock()
	r.draft = draft
	r.fragments = fragments
	r.mu.Unlock()
}

// Draft returns the current live notes draft
func (r *Runner) Draft() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.draft
}

// Fragments returns a copy of the current live-layer fragments
func (r *Runner) Fragments() []Fragment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Fragment, len(r.fragments))
	copy(out, r.fragments)
	return out
}

// Index builds a citation index over the current live-layer fragments
func (r *Runner) Index() *CitationIndex {
	return NewCitationIndex(r.Fragments())
}
