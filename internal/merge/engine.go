package merge

import (
	"fmt"
	"math"
	"sort"

	"github.com/boris-gans/note-gen/internal/notes"
	"github.com/boris-gans/note-gen/internal/outline"
)

// UnassignedTitle names the implicit terminal section collecting fragments
// that match no heading above the threshold.
const UnassignedTitle = "Unassigned"

// TranscriptTitle names the single synthetic section used when a session has
// no slide outline.
const TranscriptTitle = "Transcript"

// MergeError indicates the merge batch operation failed. On failure the
// prior merged layer is left untouched, never partially overwritten.
type MergeError struct {
	SessionID string
	Err       error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge failed for session %s: %v", e.SessionID, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// MergedSection is one heading of the merged document with its assigned
// fragments in citation order
type MergedSection struct {
	Heading   string           `json:"heading"`
	Bullets   []string         `json:"bullets"`
	SlideRefs []int            `json:"slide_refs,omitempty"`
	Fragments []notes.Fragment `json:"fragments"`
}

// Document is the merged document tree: outline sections in slide order,
// each populated with assigned fragments, plus the trailing Unassigned
// section when an outline exists
type Document struct {
	Sections []MergedSection `json:"sections"`
}

// Engine assigns live-layer note fragments to outline sections. The merge is
// a pure full recompute: identical inputs always yield an identical tree.
type Engine struct {
	scorer    Scorer
	threshold float64
}

// NewEngine creates a merge engine. threshold is the minimum score for a
// fragment to land in a real section rather than Unassigned.
func NewEngine(scorer Scorer, threshold float64) (*Engine, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer cannot be nil")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be in [0, 1], got %g", threshold)
	}
	return &Engine{scorer: scorer, threshold: threshold}, nil
}

// Merge builds the merged document from outline sections and live fragments.
// totalDuration is the session's audio length in seconds, used only for
// chronological tie-breaking. Without an outline all fragments land in a
// single synthetic Transcript section. Zero fragments produce an
// empty-but-valid document.
func (e *Engine) Merge(sections []outline.Section, fragments []notes.Fragment, totalDuration float64) (*Document, error) {
	for _, frag := range fragments {
		for _, c := range frag.Citations {
			if c.End < c.Start {
				return nil, &MergeError{Err: fmt.Errorf(
					"fragment %q cites inverted range [%.2f-%.2f]", frag.Text, c.Start, c.End)}
			}
		}
	}

	if len(sections) == 0 {
		doc := &Document{Sections: []MergedSection{{
			Heading:   TranscriptTitle,
			Bullets:   []string{},
			Fragments: relabel(fragments),
		}}}
		sortByCitation(doc.Sections[0].Fragments)
		return doc, nil
	}

	doc := &Document{Sections: make([]MergedSection, 0, len(sections)+1)}
	for _, sec := range sections {
		doc.Sections = append(doc.Sections, MergedSection{
			Heading:   sec.Title,
			Bullets:   append([]string{}, sec.Bullets...),
			SlideRefs: append([]int(nil), sec.SlideRefs...),
			Fragments: []notes.Fragment{},
		})
	}
	doc.Sections = append(doc.Sections, MergedSection{
		Heading:   UnassignedTitle,
		Bullets:   []string{},
		Fragments: []notes.Fragment{},
	})
	unassigned := len(doc.Sections) - 1

	for _, frag := range relabel(fragments) {
		target := e.assign(frag, sections, totalDuration)
		if target < 0 {
			target = unassigned
		}
		doc.Sections[target].Fragments = append(doc.Sections[target].Fragments, frag)
	}

	for i := range doc.Sections {
		sortByCitation(doc.Sections[i].Fragments)
	}
	return doc, nil
}

// assign returns the index of the best-matching section, or -1 when no
// section scores above the threshold. Score ties are broken by preferring
// the section whose expected slide time is closest to the fragment's
// citation midpoint, then by lower slide index.
func (e *Engine) assign(frag notes.Fragment, sections []outline.Section, totalDuration float64) int {
	const eps = 1e-9

	best := -1
	bestScore := 0.0
	midpoint := frag.CitationMidpoint()

	for i, sec := range sections {
		score := e.scorer.Score(frag.Text, sec)
		if score < e.threshold {
			continue
		}

		switch {
		case best < 0 || score > bestScore+eps:
			best, bestScore = i, score
		case math.Abs(score-bestScore) <= eps:
			if e.sectionDistance(i, len(sections), midpoint, totalDuration) <
				e.sectionDistance(best, len(sections), midpoint, totalDuration) {
				best, bestScore = i, score
			}
		}
	}
	return best
}

// sectionDistance measures how far a fragment's citation midpoint is from a
// section's expected time, assuming slides run roughly in step with the
// lecture
func (e *Engine) sectionDistance(idx, numSections int, midpoint, totalDuration float64) float64 {
	if totalDuration <= 0 || numSections == 0 {
		return 0
	}
	expected := (float64(idx) + 0.5) / float64(numSections) * totalDuration
	return math.Abs(midpoint - expected)
}

// relabel copies fragments into the merged layer with normalized citations
func relabel(fragments []notes.Fragment) []notes.Fragment {
	out := make([]notes.Fragment, 0, len(fragments))
	for _, frag := range fragments {
		copied := notes.Fragment{
			Text:       frag.Text,
			Citations:  append([]notes.Citation(nil), frag.Citations...),
			Provenance: notes.ProvenanceMerged,
		}
		copied.Normalize()
		out = append(out, copied)
	}
	return out
}

// sortByCitation orders fragments by first citation start time ascending.
// The sort is stable so fragments without citations keep their input order.
func sortByCitation(fragments []notes.Fragment) {
	sort.SliceStable(fragments, func(i, j int) bool {
		return firstCitationStart(fragments[i]) < firstCitationStart(fragments[j])
	})
}

func firstCitationStart(f notes.Fragment) float64 {
	if len(f.Citations) == 0 {
		return 0
	}
	return f.Citations[0].Start
}
