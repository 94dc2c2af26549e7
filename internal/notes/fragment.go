package notes

import (
	"fmt"
	"sort"
)

// Provenance tags which layer produced a fragment
type Provenance string

const (
	ProvenanceLive     Provenance = "live"
	ProvenanceMerged   Provenance = "merged"
	ProvenancePolished Provenance = "polished"
)

// Citation binds a note fragment to the source audio time range it derives
// from. Both times must fall within the span of an existing chunk in the
// same session.
type Citation struct {
	Start      float64 `json:"start_time"`
	End        float64 `json:"end_time"`
	ChunkIndex int     `json:"chunk_index"`
}

// Fragment is an atomic bullet or heading produced by synthesis or merge.
// Fragments are immutable once written to a layer; later layers produce new
// fragments rather than mutating earlier ones.
type Fragment struct {
	Text       string     `json:"text"`
	Citations  []Citation `json:"citations"`
	Provenance Provenance `json:"provenance"`
}

// Normalize sorts the fragment's citations by start time ascending,
// preserving the invariant required by the citation index and merge engine
func (f *Fragment) Normalize() {
	sort.SliceStable(f.Citations, func(i, j int) bool {
		return f.Citations[i].Start < f.Citations[j].Start
	})
}

// CitationMidpoint returns the midpoint of the fragment's full cited time
// range, used for chronological tie-breaking during merge. Returns 0 for a
// fragment without citations.
func (f Fragment) CitationMidpoint() float64 {
	if len(f.Citations) == 0 {
		return 0
	}
	first := f.Citations[0].Start
	last := f.Citations[len(f.Citations)-1].End
	return (first + last) / 2
}

// SynthesisError indicates the synthesis capability failed for one call.
// The previous draft is retained; the missed window is naturally included
// in a later synthesis.
type SynthesisError struct {
	SessionID string
	Err       error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for session %s: %v", e.SessionID, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// IntegrityError indicates a citation referencing a nonexistent chunk or a
// time range outside its chunk's span. Detected by CitationIndex validation;
// surfaced, never silently dropped.
type IntegrityError struct {
	FragmentText string
	Citation     Citation
	Reason       string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("citation integrity violation (%s): chunk %d [%.2f-%.2f] in fragment %q",
		e.Reason, e.Citation.ChunkIndex, e.Citation.Start, e.Citation.End, e.FragmentText)
}
