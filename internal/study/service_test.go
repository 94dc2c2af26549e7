package study

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/boris-gans/note-gen/internal/llm"
	"github.com/boris-gans/note-gen/internal/store"
)

type fakeGenerator struct {
	guide     string
	questions []llm.QuizQuestion
	err       error
}

func (f *fakeGenerator) StudyGuide(ctx context.Context, md string) (string, error) {
	return f.guide, f.err
}

func (f *fakeGenerator) Quiz(ctx context.Context, md string, n int) ([]llm.QuizQuestion, error) {
	return f.questions, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGuidePersistsAndRereads(t *testing.T) {
	db := openTestStore(t)
	gen := &fakeGenerator{guide: "# Study Guide\n\nKey ideas."}
	svc, err := NewService(gen, db, nil, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	guide, err := svc.Guide(context.Background(), "sess-1", "## Notes\n- something")
	if err != nil {
		t.Fatalf("Guide: %v", err)
	}
	if guide != gen.guide {
		t.Errorf("guide = %q", guide)
	}

	stored, err := svc.StoredGuide("sess-1")
	if err != nil {
		t.Fatalf("StoredGuide: %v", err)
	}
	if stored != gen.guide {
		t.Errorf("stored guide = %q", stored)
	}
}

func TestQuizRoundTrip(t *testing.T) {
	db := openTestStore(t)
	gen := &fakeGenerator{questions: []llm.QuizQuestion{
		{
			Question:     "What is a base case?",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 2,
			Explanation:  "It terminates the recursion.",
		},
	}}
	svc, _ := NewService(gen, db, nil, testLogger())

	questions, err := svc.Quiz(context.Background(), "sess-1", "## Notes", 1)
	if err != nil {
		t.Fatalf("Quiz: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("got %d questions", len(questions))
	}

	stored, err := svc.StoredQuiz("sess-1")
	if err != nil {
		t.Fatalf("StoredQuiz: %v", err)
	}
	if stored[0].CorrectIndex != 2 || stored[0].Question != questions[0].Question {
		t.Errorf("stored quiz does not match: %+v", stored[0])
	}
}

func TestEmptyNotesRejected(t *testing.T) {
	svc, _ := NewService(&fakeGenerator{}, nil, nil, testLogger())

	if _, err := svc.Guide(context.Background(), "sess-1", ""); err == nil {
		t.Error("guide from empty notes should fail")
	}
	if _, err := svc.Quiz(context.Background(), "sess-1", "", 5); err == nil {
		t.Error("quiz from empty notes should fail")
	}
}

func TestGenerationFailureNotPersisted(t *testing.T) {
	db := openTestStore(t)
	gen := &fakeGenerator{err: errors.New("capability unavailable")}
	svc, _ := NewService(gen, db, nil, testLogger())

	if _, err := svc.Guide(context.Background(), "sess-1", "## Notes"); err == nil {
		t.Fatal("expected generation failure")
	}
	if _, err := svc.StoredGuide("sess-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
