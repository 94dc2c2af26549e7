package study

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/boris-gans/note-gen/internal/llm"
	"github.com/boris-gans/note-gen/internal/metrics"
	"github.com/boris-gans/note-gen/internal/store"
)

const (
	KindGuide = "guide"
	KindQuiz  = "quiz"
)

// Generator is the LLM capability behind study material generation
type Generator interface {
	StudyGuide(ctx context.Context, notesMarkdown string) (string, error)
	Quiz(ctx context.Context, notesMarkdown string, numQuestions int) ([]llm.QuizQuestion, error)
}

// Service generates study guides and quizzes from notes markdown and
// persists them per session. Regeneration overwrites the stored artifact.
type Service struct {
	gen     Generator
	db      *store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService creates a study material service. db and m may be nil in tests;
// persistence and metrics are then skipped.
func NewService(gen Generator, db *store.Store, m *metrics.Metrics, logger *slog.Logger) (*Service, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	return &Service{gen: gen, db: db, metrics: m, logger: logger}, nil
}

// Guide generates a study guide from the given notes and persists it
func (s *Service) Guide(ctx context.Context, sessionID, notesMarkdown string) (string, error) {
	if notesMarkdown == "" {
		return "", fmt.Errorf("session %s has no notes to generate a guide from", sessionID)
	}

	guide, err := s.gen.StudyGuide(ctx, notesMarkdown)
	if err != nil {
		return "", fmt.Errorf("guide generation for session %s: %w", sessionID, err)
	}

	s.persist(sessionID, KindGuide, guide)
	if s.metrics != nil {
		s.metrics.RecordStudyArtifact(KindGuide)
	}

	s.logger.Info("Study guide generated",
		slog.String("session_id", sessionID),
		slog.Int("length", len(guide)),
	)
	return guide, nil
}

// Quiz generates multiple-choice questions from the given notes and
// persists them as JSON
func (s *Service) Quiz(ctx context.Context, sessionID, notesMarkdown string, numQuestions int) ([]llm.QuizQuestion, error) {
	if notesMarkdown == "" {
		return nil, fmt.Errorf("session %s has no notes to generate a quiz from", sessionID)
	}

	questions, err := s.gen.Quiz(ctx, notesMarkdown, numQuestions)
	if err != nil {
		return nil, fmt.Errorf("quiz generation for session %s: %w", sessionID, err)
	}

	encoded, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("encode quiz: %w", err)
	}
	s.persist(sessionID, KindQuiz, string(encoded))
	if s.metrics != nil {
		s.metrics.RecordStudyArtifact(KindQuiz)
	}

	s.logger.Info("Quiz generated",
		slog.String("session_id", sessionID),
		slog.Int("questions", len(questions)),
	)
	return questions, nil
}

// StoredGuide returns the persisted study guide for a session, or
// store.ErrNotFound when none was generated
func (s *Service) StoredGuide(sessionID string) (string, error) {
	if s.db == nil {
		return "", store.ErrNotFound
	}
	rec, err := s.db.GetStudyArtifact(sessionID, KindGuide)
	if err != nil {
		return "", err
	}
	return rec.Content, nil
}

// StoredQuiz returns the persisted quiz for a session, or store.ErrNotFound
// when none was generated
func (s *Service) StoredQuiz(sessionID string) ([]llm.QuizQuestion, error) {
	if s.db == nil {
		return nil, store.ErrNotFound
	}
	rec, err := s.db.GetStudyArtifact(sessionID, KindQuiz)
	if err != nil {
		return nil, err
	}
	var questions []llm.QuizQuestion
	if err := json.Unmarshal([]byte(rec.Content), &questions); err != nil {
		return nil, fmt.Errorf("decode stored quiz: %w", err)
	}
	return questions, nil
}

func (s *Service) persist(sessionID, kind, content string) {
	if s.db == nil {
		return
	}
	if err := s.db.SaveStudyArtifact(store.StudyArtifactRecord{
		SessionID: sessionID,
		Kind:      kind,
		Content:   content,
	}); err != nil {
		s.logger.Error("Failed to persist study artifact",
			slog.String("session_id", sessionID),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}
