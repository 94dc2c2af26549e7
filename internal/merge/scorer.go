package merge

import (
	"strings"
	"unicode"

	"github.com/boris-gans/note-gen/internal/outline"
)

// Scorer rates how well a note fragment matches an outline section. Scores
// are in [0, 1]; higher means a better match. Implementations must be pure:
// identical inputs always produce identical scores. An embedding-similarity
// scorer can replace the lexical baseline behind this interface.
type Scorer interface {
	Score(fragmentText string, section outline.Section) float64
}

// LexicalScorer is the keyword-overlap baseline. Section title tokens count
// double against bullet tokens; the score is the matched share of the
// section's total token weight.
type LexicalScorer struct {
	stopwords map[string]struct{}
}

// NewLexicalScorer creates the default lexical scorer
func NewLexicalScorer() *LexicalScorer {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
		"if", "in", "into", "is", "it", "its", "no", "not", "of", "on",
		"or", "so", "such", "that", "the", "their", "then", "there",
		"these", "they", "this", "to", "was", "we", "were", "what",
		"when", "which", "will", "with", "you",
	}
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		stop[w] = struct{}{}
	}
	return &LexicalScorer{stopwords: stop}
}

// Score computes the weighted lexical overlap between the fragment text and
// the section's title and bullets
func (s *LexicalScorer) Score(fragmentText string, section outline.Section) float64 {
	fragTokens := s.tokenSet(fragmentText)
	if len(fragTokens) == 0 {
		return 0
	}

	weights := make(map[string]float64)
	for _, tok := range s.tokenize(section.Title) {
		weights[tok] = 2.0
	}
	for _, bullet := range section.Bullets {
		for _, tok := range s.tokenize(bullet) {
			if weights[tok] < 1.0 {
				weights[tok] = 1.0
			}
		}
	}

	var total, matched float64
	for tok, w := range weights {
		total += w
		if _, ok := fragTokens[tok]; ok {
			matched += w
		}
	}
	if total == 0 {
		return 0
	}
	return matched / total
}

// tokenize lowercases, splits on non-alphanumeric runes and drops stopwords
func (s *LexicalScorer) tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := s.stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func (s *LexicalScorer) tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range s.tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}
