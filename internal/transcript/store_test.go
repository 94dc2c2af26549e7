package transcript

import (
	"testing"
)

func chunkAt(index int, start, end float64) Chunk {
	return Chunk{
		Index:  index,
		Start:  start,
		End:    end,
		Status: StatusTranscribed,
		Text:   "text",
	}
}

func TestAppendOrdering(t *testing.T) {
	s := NewStore()

	for i := 0; i < 5; i++ {
		c := chunkAt(i, float64(i*60), float64((i+1)*60))
		if err := s.Append(c); err != nil {
			t.Fatalf("append chunk %d: %v", i, err)
		}
	}

	if s.Len() != 5 {
		t.Fatalf("expected 5 chunks, got %d", s.Len())
	}

	// Indices are contiguous and strictly increasing
	all := s.All()
	for i, c := range all {
		if c.Index != i {
			t.Errorf("chunk at position %d has index %d", i, c.Index)
		}
		if i > 0 && c.Start < all[i-1].End {
			t.Errorf("chunk %d overlaps previous: start %.2f < prev end %.2f", i, c.Start, all[i-1].End)
		}
	}
}

func TestAppendRejectsGapsAndDuplicates(t *testing.T) {
	s := NewStore()
	if err := s.Append(chunkAt(0, 0, 60)); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.Append(chunkAt(2, 120, 180)); err == nil {
		t.Error("expected error appending chunk with gap in indices")
	}
	if err := s.Append(chunkAt(0, 0, 60)); err == nil {
		t.Error("expected error appending duplicate index")
	}
	if err := s.Append(chunkAt(1, 30, 90)); err == nil {
		t.Error("expected error appending overlapping time range")
	}
}

func TestAppendRejectsInvalidTimes(t *testing.T) {
	s := NewStore()
	if err := s.Append(chunkAt(0, 60, 0)); err == nil {
		t.Error("expected error for end before start")
	}
}

func TestWindow(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		if err := s.Append(chunkAt(i, float64(i*60), float64((i+1)*60))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	w := s.Window(3)
	if len(w) != 3 {
		t.Fatalf("expected window of 3, got %d", len(w))
	}
	if w[0].Index != 7 || w[2].Index != 9 {
		t.Errorf("expected indices 7..9, got %d..%d", w[0].Index, w[2].Index)
	}

	// Window larger than store returns everything
	if got := len(s.Window(100)); got != 10 {
		t.Errorf("expected full store, got %d", got)
	}

	if s.Window(0) != nil {
		t.Error("expected nil window for n=0")
	}
}

func TestWindowIsCopy(t *testing.T) {
	s := NewStore()
	if err := s.Append(chunkAt(0, 0, 60)); err != nil {
		t.Fatalf("append: %v", err)
	}

	w := s.Window(1)
	w[0].Text = "mutated"

	got, _ := s.Get(0)
	if got.Text != "text" {
		t.Error("window mutation leaked into store")
	}
}

func TestTotalDuration(t *testing.T) {
	s := NewStore()
	if s.TotalDuration() != 0 {
		t.Error("expected 0 duration for empty store")
	}

	s.Append(chunkAt(0, 0, 60))
	s.Append(chunkAt(1, 60, 95.5))

	if got := s.TotalDuration(); got != 95.5 {
		t.Errorf("expected 95.5, got %f", got)
	}
}
