package notes

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/boris-gans/note-gen/internal/transcript"
)

func storeWithChunks(t *testing.T, n int) *transcript.Store {
	t.Helper()
	s := transcript.NewStore()
	for i := 0; i < n; i++ {
		err := s.Append(transcript.Chunk{
			Index:  i,
			Start:  float64(i * 60),
			End:    float64((i + 1) * 60),
			Status: transcript.StatusTranscribed,
			Text:   "chunk text",
		})
		if err != nil {
			t.Fatalf("append chunk %d: %v", i, err)
		}
	}
	return s
}

func TestIndexLookups(t *testing.T) {
	frags := []Fragment{
		{Text: "recursion calls itself", Citations: []Citation{{Start: 5, End: 55, ChunkIndex: 0}}},
		{Text: "base case stops descent", Citations: []Citation{{Start: 65, End: 110, ChunkIndex: 1}}},
		{Text: "spans two chunks", Citations: []Citation{
			{Start: 50, End: 60, ChunkIndex: 0},
			{Start: 60, End: 70, ChunkIndex: 1},
		}},
	}

	ix := NewCitationIndex(frags)

	forChunk0 := ix.FragmentsForChunk(0)
	if len(forChunk0) != 2 {
		t.Fatalf("expected 2 fragments for chunk 0, got %d", len(forChunk0))
	}

	forChunk1 := ix.FragmentsForChunk(1)
	if len(forChunk1) != 2 {
		t.Fatalf("expected 2 fragments for chunk 1, got %d", len(forChunk1))
	}

	at := ix.FragmentsAt(67)
	if len(at) != 2 {
		t.Fatalf("expected 2 fragments at t=67, got %d", len(at))
	}

	if got := ix.FragmentsAt(500); len(got) != 0 {
		t.Errorf("expected no fragments at t=500, got %d", len(got))
	}
}

func TestValidateAcceptsResolvableCitations(t *testing.T) {
	store := storeWithChunks(t, 3)
	ix := NewCitationIndex([]Fragment{
		{Text: "ok", Citations: []Citation{{Start: 0, End: 60, ChunkIndex: 0}}},
		{Text: "also ok", Citations: []Citation{{Start: 130, End: 175, ChunkIndex: 2}}},
	})

	if err := ix.Validate(store); err != nil {
		t.Fatalf("expected valid index, got %v", err)
	}
}

func TestValidateDetectsViolations(t *testing.T) {
	store := storeWithChunks(t, 2)

	tests := []struct {
		name string
		cite Citation
	}{
		{"nonexistent chunk", Citation{Start: 0, End: 10, ChunkIndex: 7}},
		{"range outside chunk", Citation{Start: 0, End: 90, ChunkIndex: 0}},
		{"end before start", Citation{Start: 50, End: 10, ChunkIndex: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := NewCitationIndex([]Fragment{{Text: "bad", Citations: []Citation{tt.cite}}})
			err := ix.Validate(store)
			if err == nil {
				t.Fatal("expected integrity error")
			}
			var integrity *IntegrityError
			if !errors.As(err, &integrity) {
				t.Errorf("expected IntegrityError, got %T", err)
			}
		})
	}
}

// Randomized chunk/citation sets: any citation generated inside an existing
// chunk's span must validate; any citation referencing a missing chunk must
// not.
func TestValidateRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(10)
		store := storeWithChunks(t, n)

		var frags []Fragment
		for f := 0; f < 1+rng.Intn(5); f++ {
			ci := rng.Intn(n)
			lo := float64(ci*60) + rng.Float64()*30
			hi := lo + rng.Float64()*(float64((ci+1)*60)-lo)
			frags = append(frags, Fragment{
				Text:      "frag",
				Citations: []Citation{{Start: lo, End: hi, ChunkIndex: ci}},
			})
		}

		ix := NewCitationIndex(frags)
		if err := ix.Validate(store); err != nil {
			t.Fatalf("trial %d: valid citations rejected: %v", trial, err)
		}

		// Corrupt one citation to point past the last chunk
		frags[0].Citations[0].ChunkIndex = n + rng.Intn(5)
		if err := NewCitationIndex(frags).Validate(store); err == nil {
			t.Fatalf("trial %d: dangling citation accepted", trial)
		}
	}
}

func TestRebuildFromFragmentsAlone(t *testing.T) {
	frags := []Fragment{
		{Text: "a", Citations: []Citation{{Start: 0, End: 30, ChunkIndex: 0}}},
	}

	ix1 := NewCitationIndex(frags)
	ix2 := NewCitationIndex(ix1.Fragments())

	if len(ix2.FragmentsForChunk(0)) != 1 {
		t.Error("rebuilt index lost chunk mapping")
	}
}

func TestFragmentNormalize(t *testing.T) {
	f := Fragment{
		Text: "unsorted",
		Citations: []Citation{
			{Start: 120, End: 150, ChunkIndex: 2},
			{Start: 10, End: 40, ChunkIndex: 0},
		},
	}
	f.Normalize()

	if f.Citations[0].Start != 10 {
		t.Errorf("citations not sorted by start time: %+v", f.Citations)
	}

	if mid := f.CitationMidpoint(); mid != 80 {
		t.Errorf("expected midpoint 80, got %f", mid)
	}
}
