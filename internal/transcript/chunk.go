package transcript

import "fmt"

// ChunkStatus tracks a chunk through the transcription pipeline
type ChunkStatus string

const (
	StatusPending      ChunkStatus = "pending"
	StatusTranscribing ChunkStatus = "transcribing"
	StatusTranscribed  ChunkStatus = "transcribed"
	StatusFailed       ChunkStatus = "failed"
)

// WordTimestamp is an optional word-level timing from the transcription capability
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Chunk is a finalized fixed-duration audio segment and its transcription
// result. Start and End are seconds relative to the session start. Index is
// 0-based and contiguous within a session. Once a chunk reaches
// StatusTranscribed its text and timing fields never change; a failed chunk
// keeps its time range with empty text so the timeline has no holes.
type Chunk struct {
	Index      int             `json:"chunk_index"`
	Start      float64         `json:"start_time"`
	End        float64         `json:"end_time"`
	Status     ChunkStatus     `json:"status"`
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Words      []WordTimestamp `json:"words,omitempty"`
	Retries    int             `json:"retries"`
}

// Duration returns the chunk's time span in seconds
func (c Chunk) Duration() float64 {
	return c.End - c.Start
}

// Contains reports whether the given time range lies within the chunk's span
func (c Chunk) Contains(start, end float64) bool {
	return start >= c.Start && end <= c.End
}

// Validate checks the chunk's internal invariants
func (c Chunk) Validate() error {
	if c.Index < 0 {
		return fmt.Errorf("chunk index must be non-negative, got %d", c.Index)
	}
	if c.End < c.Start {
		return fmt.Errorf("chunk %d: end_time %.2f before start_time %.2f", c.Index, c.End, c.Start)
	}
	return nil
}
