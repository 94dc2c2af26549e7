package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/boris-gans/note-gen/internal/bus"
	"github.com/boris-gans/note-gen/internal/config"
	"github.com/boris-gans/note-gen/internal/notes"
	"github.com/boris-gans/note-gen/internal/outline"
	"github.com/boris-gans/note-gen/internal/store"
	"github.com/boris-gans/note-gen/internal/transcription"
)

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &transcription.Result{
		Text:       fmt.Sprintf("spoken content of chunk %d", req.ChunkIndex),
		Confidence: 0.9,
	}, nil
}

type fakeSynthesizer struct{}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, req notes.SynthesisRequest) (*notes.SynthesisResult, error) {
	result := &notes.SynthesisResult{Draft: "## Notes\n"}
	for _, c := range req.Window {
		if c.Text == "" {
			continue
		}
		result.Draft += "- " + c.Text + "\n"
		result.Fragments = append(result.Fragments, notes.Fragment{
			Text:      "point from chunk " + fmt.Sprint(c.Index),
			Citations: []notes.Citation{{Start: c.Start, End: c.End, ChunkIndex: c.Index}},
		})
	}
	return result, nil
}

type fakePolisher struct {
	fail bool
}

func (f *fakePolisher) Polish(ctx context.Context, md string) (string, error) {
	if f.fail {
		return "", errors.New("capability unavailable")
	}
	return "POLISHED\n" + md, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Audio.SampleRate = 16000
	cfg.Audio.Channels = 1
	cfg.Audio.BitDepth = 16
	cfg.Audio.ChunkDurationSeconds = 0.05 // 50ms chunks keep tests fast
	cfg.Audio.FinalizeIntervalMs = 100
	return cfg
}

func newTestManager(t *testing.T) (*Manager, *fakePolisher) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	polisher := &fakePolisher{}
	mgr, err := NewManager(testConfig(), logger, bus.New(), nil, nil,
		&fakeTranscriber{}, &fakeSynthesizer{}, polisher)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(mgr.Stop)
	return mgr, polisher
}

// pcmSilence returns count samples of silence as little-endian PCM16
func pcmSilence(count int) []byte {
	return make([]byte, count*2)
}

func TestSessionLifecycleEndToEnd(t *testing.T) {
	mgr, _ := newTestManager(t)

	session, err := mgr.CreateSession(1)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.State() != StateIdle {
		t.Fatalf("initial state = %s", session.State())
	}

	if err := mgr.StartRecording(session.ID); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if session.State() != StateRecording {
		t.Fatalf("state after start = %s", session.State())
	}

	// 130ms of audio at 16kHz: two complete 50ms chunks plus a 30ms residual.
	if err := mgr.IngestAudio(session.ID, pcmSilence(16000*130/1000)); err != nil {
		t.Fatalf("IngestAudio: %v", err)
	}

	if err := mgr.StopRecording(context.Background(), session.ID); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if session.State() != StateStopped {
		t.Fatalf("state after stop = %s", session.State())
	}

	// The residual was flushed as its own chunk, never dropped.
	if got := session.Transcript().Len(); got != 3 {
		t.Fatalf("expected 3 chunks (2 full + residual), got %d", got)
	}
	last, _ := session.Transcript().Get(2)
	if last.Duration() >= 0.05 {
		t.Errorf("residual chunk duration = %.3f, expected < chunk length", last.Duration())
	}

	if session.LiveDraft() == "" {
		t.Error("live draft empty after final synthesis")
	}
	if len(session.LiveFragments()) == 0 {
		t.Error("no live fragments after final synthesis")
	}

	doc, err := mgr.MergeNotes(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("MergeNotes: %v", err)
	}
	if session.State() != StateMerged {
		t.Fatalf("state after merge = %s", session.State())
	}
	// No outline attached: single synthetic Transcript section.
	if len(doc.Sections) != 1 || doc.Sections[0].Heading != "Transcript" {
		t.Fatalf("expected single Transcript section, got %+v", doc.Sections)
	}

	polished, err := mgr.PolishNotes(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("PolishNotes: %v", err)
	}
	if session.State() != StatePolished {
		t.Fatalf("state after polish = %s", session.State())
	}
	if polished == "" {
		t.Error("polished notes empty")
	}
	if session.BestMarkdown() != polished {
		t.Error("BestMarkdown should prefer the polished layer")
	}
}

func TestInvalidTransitions(t *testing.T) {
	mgr, _ := newTestManager(t)
	session, _ := mgr.CreateSession(1)

	// Merge and polish require prior states.
	if _, err := mgr.MergeNotes(context.Background(), session.ID); err == nil {
		t.Error("merge from idle should fail")
	}
	if _, err := mgr.PolishNotes(context.Background(), session.ID); err == nil {
		t.Error("polish from idle should fail")
	}
	if err := mgr.StopRecording(context.Background(), session.ID); err == nil {
		t.Error("stop from idle should fail")
	}

	if err := mgr.StartRecording(session.ID); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	// A second start while recording is invalid.
	if err := mgr.StartRecording(session.ID); err == nil {
		t.Error("double start should fail")
	}

	var stateErr *StateError
	err := mgr.StartRecording(session.ID)
	if !errors.As(err, &stateErr) {
		t.Errorf("expected StateError, got %T", err)
	}

	if err := mgr.StopRecording(context.Background(), session.ID); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	// Once stopped, a session cannot restart recording.
	if err := mgr.StartRecording(session.ID); err == nil {
		t.Error("restart after stop should fail")
	}
	if err := mgr.IngestAudio(session.ID, pcmSilence(100)); err == nil {
		t.Error("ingest after stop should fail")
	}
}

func TestPolishIsRepeatable(t *testing.T) {
	mgr, polisher := newTestManager(t)
	session, _ := mgr.CreateSession(1)

	mgr.StartRecording(session.ID)
	mgr.IngestAudio(session.ID, pcmSilence(16000*60/1000))
	if err := mgr.StopRecording(context.Background(), session.ID); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if _, err := mgr.MergeNotes(context.Background(), session.ID); err != nil {
		t.Fatalf("MergeNotes: %v", err)
	}

	first, err := mgr.PolishNotes(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("first polish: %v", err)
	}
	mergedBefore := session.MergedMarkdown()

	second, err := mgr.PolishNotes(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("second polish: %v", err)
	}
	if second == "" || first == "" {
		t.Fatal("polish produced empty notes")
	}

	// Re-polishing overwrites only the polished layer.
	if session.MergedMarkdown() != mergedBefore {
		t.Error("merged layer changed by polish")
	}

	// A failed polish leaves the prior polished layer intact.
	polisher.fail = true
	if _, err := mgr.PolishNotes(context.Background(), session.ID); err == nil {
		t.Fatal("expected polish failure")
	}
	if session.PolishedMarkdown() != second {
		t.Error("failed polish disturbed the polished layer")
	}
}

func TestMergeWithOutlineAssignsSections(t *testing.T) {
	mgr, _ := newTestManager(t)
	session, _ := mgr.CreateSession(1)

	err := mgr.AttachOutline(session.ID, &outline.Outline{
		FilePath: "week1.md",
		Sections: []outline.Section{
			{Title: "Chunk Content", Bullets: []string{"spoken content of every chunk"}},
		},
	})
	if err != nil {
		t.Fatalf("AttachOutline: %v", err)
	}

	mgr.StartRecording(session.ID)
	mgr.IngestAudio(session.ID, pcmSilence(16000*60/1000))
	if err := mgr.StopRecording(context.Background(), session.ID); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}

	doc, err := mgr.MergeNotes(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("MergeNotes: %v", err)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected outline section + Unassigned, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Heading != "Chunk Content" {
		t.Errorf("first section = %q", doc.Sections[0].Heading)
	}

	// Merge is repeatable as a full recompute.
	again, err := mgr.MergeNotes(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if len(again.Sections) != len(doc.Sections) {
		t.Error("recompute changed section count")
	}
}

func TestRemoveSessionWhileRecording(t *testing.T) {
	mgr, _ := newTestManager(t)
	session, _ := mgr.CreateSession(1)
	mgr.StartRecording(session.ID)
	mgr.IngestAudio(session.ID, pcmSilence(16000*60/1000))

	if !mgr.RemoveSession(session.ID) {
		t.Fatal("RemoveSession returned false")
	}
	if _, exists := mgr.GetSession(session.ID); exists {
		t.Error("session still present after removal")
	}
	if mgr.RemoveSession(session.ID) {
		t.Error("second removal should return false")
	}
}

// Persisted sessions must stay reachable after a process restart: a fresh
// manager over the same database serves the transcript, outline and note
// layers without the original in-memory state.
func TestPersistedSessionSurvivesRestart(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := store.Open(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	course, err := db.CreateCourse("algorithms")
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	cfg := testConfig()
	cfg.Storage.DataDir = t.TempDir()

	mgr1, err := NewManager(cfg, logger, bus.New(), nil, db,
		&fakeTranscriber{}, &fakeSynthesizer{}, &fakePolisher{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	session, err := mgr1.CreateSession(course.ID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	err = mgr1.AttachOutline(session.ID, &outline.Outline{
		FilePath: "week1.md",
		Sections: []outline.Section{
			{Title: "Chunk Content", Bullets: []string{"spoken content of every chunk"}},
		},
	})
	if err != nil {
		t.Fatalf("AttachOutline: %v", err)
	}

	mgr1.StartRecording(session.ID)
	mgr1.IngestAudio(session.ID, pcmSilence(16000*60/1000))
	if err := mgr1.StopRecording(context.Background(), session.ID); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if _, err := mgr1.MergeNotes(context.Background(), session.ID); err != nil {
		t.Fatalf("MergeNotes: %v", err)
	}
	polished, err := mgr1.PolishNotes(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("PolishNotes: %v", err)
	}

	chunks := session.Transcript().Len()
	fragments := len(session.LiveFragments())
	mgr1.Stop()

	mgr2, err := NewManager(cfg, logger, bus.New(), nil, db,
		&fakeTranscriber{}, &fakeSynthesizer{}, &fakePolisher{})
	if err != nil {
		t.Fatalf("NewManager (restart): %v", err)
	}
	t.Cleanup(mgr2.Stop)

	restored, exists := mgr2.GetSession(session.ID)
	if !exists {
		t.Fatal("persisted session unreachable after restart")
	}
	if restored.State() != StatePolished {
		t.Errorf("restored state = %s, want %s", restored.State(), StatePolished)
	}
	if restored.Transcript() == nil || restored.Transcript().Len() != chunks {
		t.Errorf("restored transcript lost chunks: got %v, want %d chunks",
			restored.Transcript(), chunks)
	}
	if len(restored.Outline()) != 1 {
		t.Errorf("restored outline sections = %d, want 1", len(restored.Outline()))
	}
	if got := len(restored.LiveFragments()); got != fragments {
		t.Errorf("restored live fragments = %d, want %d", got, fragments)
	}
	if restored.MergedMarkdown() == "" {
		t.Error("restored merged layer empty")
	}
	if restored.PolishedMarkdown() != polished {
		t.Error("restored polished layer differs from persisted one")
	}
	if restored.BestMarkdown() != polished {
		t.Error("BestMarkdown should prefer the restored polished layer")
	}

	// Repeat lookups serve the same rehydrated instance.
	again, _ := mgr2.GetSession(session.ID)
	if again != restored {
		t.Error("second lookup rebuilt the session instead of reusing it")
	}

	if _, exists := mgr2.GetSession("no-such-session"); exists {
		t.Error("unknown session id must not rehydrate")
	}
}

func TestRecordingStatusEvents(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eventBus := bus.New()
	mgr, err := NewManager(testConfig(), logger, eventBus, nil, nil,
		&fakeTranscriber{}, &fakeSynthesizer{}, &fakePolisher{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Stop()

	session, _ := mgr.CreateSession(1)
	sub, cancel := eventBus.Subscribe(session.ID, 32)
	defer cancel()

	mgr.StartRecording(session.ID)
	mgr.IngestAudio(session.ID, pcmSilence(16000*60/1000))
	if err := mgr.StopRecording(context.Background(), session.ID); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}

	var states []string
	deadline := time.After(2 * time.Second)
	for len(states) < 2 {
		select {
		case ev := <-sub.C:
			if ev.Type == bus.EventRecordingStatus {
				payload := ev.Payload.(map[string]string)
				states = append(states, payload["state"])
			}
		case <-deadline:
			t.Fatalf("timed out, saw states %v", states)
		}
	}
	if states[0] != "recording" || states[1] != "stopped" {
		t.Errorf("status sequence = %v", states)
	}
}
