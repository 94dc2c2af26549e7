package transcript

import (
	"fmt"
	"sync"
)

// Store is the append-only, time-ordered ledger of completed chunk records
// for one session. It is the source of truth for the rolling synthesis
// window and the final transcript. Appends must arrive in index order;
// the store rejects gaps and duplicates.
type Store struct {
	mu     sync.RWMutex
	chunks []Chunk
}

// NewStore creates an empty transcript store
func NewStore() *Store {
	return &Store{}
}

// Append adds the next chunk record. The chunk's index must be exactly
// len(store); indices are contiguous and strictly increasing.
func (s *Store) Append(chunk Chunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if chunk.Index != len(s.chunks) {
		return fmt.Errorf("out-of-order append: expected index %d, got %d", len(s.chunks), chunk.Index)
	}

	if len(s.chunks) > 0 && chunk.Start < s.chunks[len(s.chunks)-1].End {
		return fmt.Errorf("chunk %d starts at %.2f before previous chunk end %.2f",
			chunk.Index, chunk.Start, s.chunks[len(s.chunks)-1].End)
	}

	s.chunks = append(s.chunks, chunk)
	return nil
}

// Get returns the chunk at the given index
func (s *Store) Get(index int) (Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.chunks) {
		return Chunk{}, false
	}
	return s.chunks[index], true
}

// Len returns the number of chunks recorded
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// All returns a copy of every chunk in index order
func (s *Store) All() []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Window returns a copy of the most recent n chunks in index order.
// Fewer are returned when the store holds fewer than n.
func (s *Store) Window(n int) []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	start := len(s.chunks) - n
	if start < 0 {
		start = 0
	}
	out := make([]Chunk, len(s.chunks)-start)
	copy(out, s.chunks[start:])
	return out
}

// TotalDuration returns the end time of the last chunk in seconds,
// or 0 for an empty store
func (s *Store) TotalDuration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return 0
	}
	return s.chunks[len(s.chunks)-1].End
}
