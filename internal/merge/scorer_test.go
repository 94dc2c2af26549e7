package merge

import (
	"testing"

	"github.com/boris-gans/note-gen/internal/outline"
)

func TestLexicalScorerOverlap(t *testing.T) {
	s := NewLexicalScorer()
	section := outline.Section{
		Title:   "Recursion Basics",
		Bullets: []string{"definition of recursion", "base case and recursive case"},
	}

	matching := s.Score("every recursion needs a base case to terminate", section)
	if matching <= 0.3 {
		t.Errorf("matching fragment scored %g, expected > 0.3", matching)
	}

	unrelated := s.Score("the cafeteria closes at noon on fridays", section)
	if unrelated != 0 {
		t.Errorf("unrelated fragment scored %g, expected 0", unrelated)
	}

	if matching <= unrelated {
		t.Error("matching fragment should outscore unrelated fragment")
	}
}

func TestLexicalScorerTitleWeightsDouble(t *testing.T) {
	s := NewLexicalScorer()

	titleOnly := outline.Section{Title: "graphs", Bullets: []string{"trees"}}

	titleHit := s.Score("graphs everywhere", titleOnly)
	bulletHit := s.Score("trees everywhere", titleOnly)
	if titleHit <= bulletHit {
		t.Errorf("title match (%g) should outscore bullet match (%g)", titleHit, bulletHit)
	}
}

func TestLexicalScorerIgnoresStopwordsAndCase(t *testing.T) {
	s := NewLexicalScorer()
	section := outline.Section{Title: "The Heap"}

	// "the" is a stopword; only "heap" carries weight.
	got := s.Score("HEAP allocation details", section)
	if got != 1.0 {
		t.Errorf("score = %g, want 1.0", got)
	}

	if s.Score("the and of", section) != 0 {
		t.Error("stopword-only fragment should score 0")
	}
}

func TestLexicalScorerEmptyInputs(t *testing.T) {
	s := NewLexicalScorer()
	if s.Score("", outline.Section{Title: "Anything"}) != 0 {
		t.Error("empty fragment should score 0")
	}
	if s.Score("anything", outline.Section{}) != 0 {
		t.Error("empty section should score 0")
	}
}
