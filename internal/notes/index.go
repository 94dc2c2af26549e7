package notes

import (
	"sync"

	"github.com/boris-gans/note-gen/internal/transcript"
)

// CitationIndex is a bidirectional lookup between note fragments and the
// chunk time ranges they cite. It is a derived structure rebuildable from
// fragment data alone, never the source of truth.
type CitationIndex struct {
	mu        sync.RWMutex
	fragments []Fragment
	byChunk   map[int][]int // chunk index -> fragment positions
}

// NewCitationIndex builds an index over the given fragments
func NewCitationIndex(fragments []Fragment) *CitationIndex {
	ix := &CitationIndex{
		fragments: make([]Fragment, len(fragments)),
		byChunk:   make(map[int][]int),
	}
	copy(ix.fragments, fragments)

	for pos, frag := range ix.fragments {
		for _, cite := range frag.Citations {
			ix.byChunk[cite.ChunkIndex] = append(ix.byChunk[cite.ChunkIndex], pos)
		}
	}
	return ix
}

// Fragments returns a copy of the indexed fragments in order
func (ix *CitationIndex) Fragments() []Fragment {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]Fragment, len(ix.fragments))
	copy(out, ix.fragments)
	return out
}

// FragmentsForChunk returns every fragment citing the given chunk
func (ix *CitationIndex) FragmentsForChunk(chunkIndex int) []Fragment {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []Fragment
	seen := make(map[int]bool)
	for _, pos := range ix.byChunk[chunkIndex] {
		if !seen[pos] {
			seen[pos] = true
			out = append(out, ix.fragments[pos])
		}
	}
	return out
}

// FragmentsAt returns every fragment with a citation overlapping the given
// time point, for hover/jump lookups
func (ix *CitationIndex) FragmentsAt(timePoint float64) []Fragment {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []Fragment
	for _, frag := range ix.fragments {
		for _, cite := range frag.Citations {
			if timePoint >= cite.Start && timePoint <= cite.End {
				out = append(out, frag)
				break
			}
		}
	}
	return out
}

// Validate checks that every citation resolves to an existing chunk whose
// time span contains it. Used as an integrity check before export.
func (ix *CitationIndex) Validate(store *transcript.Store) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	for _, frag := range ix.fragments {
		for _, cite := range frag.Citations {
			if cite.End < cite.Start {
				return &IntegrityError{
					FragmentText: frag.Text,
					Citation:     cite,
					Reason:       "end before start",
				}
			}

			chunk, ok := store.Get(cite.ChunkIndex)
			if !ok {
				return &IntegrityError{
					FragmentText: frag.Text,
					Citation:     cite,
					Reason:       "chunk does not exist",
				}
			}

			if !chunk.Contains(cite.Start, cite.End) {
				return &IntegrityError{
					FragmentText: frag.Text,
					Citation:     cite,
					Reason:       "time range outside chunk span",
				}
			}
		}
	}
	return nil
}
