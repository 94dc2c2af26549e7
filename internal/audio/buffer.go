package audio

import (
	"fmt"
	"sync"
	"time"
)

// CaptureError indicates an audio stream failure. It is fatal to the
// session's recording but never corrupts chunks already finalized.
type CaptureError struct {
	Reason string
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture error: %s", e.Reason)
}

// Segment is a finalized span of PCM audio cut from the buffer, ready for
// transcription. Start and End are seconds relative to the session start.
type Segment struct {
	Index   int
	Start   float64
	End     float64
	Samples []int16
}

// Buffer accumulates a continuous stream of PCM-16 samples and cuts them
// into fixed-duration segments. Finalization happens either on the caller's
// poll (PendingSegments) once enough audio accumulated, or on an explicit
// Flush at stop time.
//
// Consumed audio is trimmed so memory stays bounded over long sessions;
// trimmed positions are tracked through a base offset.
type Buffer struct {
	sampleRate      int
	samplesPerChunk int

	mu           sync.Mutex
	samples      []int16
	baseOffset   int // absolute sample position of samples[0]
	totalSamples int // absolute sample count appended so far
	lastChunkEnd int // absolute sample position of the last finalized boundary
	nextIndex    int
	closed       bool

	lastUpdate time.Time
}

// NewBuffer creates a chunk buffer cutting segments of the given duration
func NewBuffer(sampleRate int, chunkDuration time.Duration) *Buffer {
	return &Buffer{
		sampleRate:      sampleRate,
		samplesPerChunk: int(chunkDuration.Seconds() * float64(sampleRate)),
		samples:         make([]int16, 0, sampleRate*2),
		lastUpdate:      time.Now(),
	}
}

// AppendSamples adds PCM samples at the current stream position. Offsets are
// implicitly monotonic: every call appends after all previously appended
// audio. Returns a CaptureError once the buffer is closed.
func (b *Buffer) AppendSamples(samples []int16) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return &CaptureError{Reason: "buffer closed"}
	}

	b.samples = append(b.samples, samples...)
	b.totalSamples += len(samples)
	b.lastUpdate = time.Now()
	return nil
}

// AppendPCM16 adds raw little-endian PCM-16 bytes
func (b *Buffer) AppendPCM16(data []byte) error {
	if len(data)%2 != 0 {
		return &CaptureError{Reason: fmt.Sprintf("audio data length must be even, got %d bytes", len(data))}
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return b.AppendSamples(samples)
}

// ChunkBoundaries returns (start, end) absolute sample offsets for every
// complete chunk available past lastEnd. Pure function; the finalize loop
// calls it every poll and gets an empty slice when not enough audio has
// accumulated.
func ChunkBoundaries(totalSamples, lastEnd, samplesPerChunk int) [][2]int {
	var boundaries [][2]int
	pos := lastEnd
	for pos+samplesPerChunk <= totalSamples {
		boundaries = append(boundaries, [2]int{pos, pos + samplesPerChunk})
		pos += samplesPerChunk
	}
	return boundaries
}

// PendingSegments cuts and returns every complete fixed-duration segment
// accumulated since the last call, advancing the chunk cursor and trimming
// consumed audio. Returns nil when less than one full chunk is buffered.
func (b *Buffer) PendingSegments() []Segment {
	b.mu.Lock()
	defer b.mu.Unlock()

	boundaries := ChunkBoundaries(b.totalSamples, b.lastChunkEnd, b.samplesPerChunk)
	if len(boundaries) == 0 {
		return nil
	}

	segments := make([]Segment, 0, len(boundaries))
	for _, bound := range boundaries {
		segments = append(segments, b.cutLocked(bound[0], bound[1]))
	}

	b.trimLocked()
	return segments
}

// Flush finalizes any residual audio past the last chunk boundary as one
// final, shorter segment and closes the buffer. Residual audio is never
// silently dropped; nil is returned only when zero samples remain.
func (b *Buffer) Flush() *Segment {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	if b.totalSamples <= b.lastChunkEnd {
		return nil
	}

	seg := b.cutLocked(b.lastChunkEnd, b.totalSamples)
	b.trimLocked()
	return &seg
}

// cutLocked extracts [start, end) absolute sample positions as a Segment
// and advances the cursor. Caller holds b.mu.
func (b *Buffer) cutLocked(start, end int) Segment {
	rel := start - b.baseOffset
	relEnd := end - b.baseOffset

	samples := make([]int16, relEnd-rel)
	copy(samples, b.samples[rel:relEnd])

	seg := Segment{
		Index:   b.nextIndex,
		Start:   float64(start) / float64(b.sampleRate),
		End:     float64(end) / float64(b.sampleRate),
		Samples: samples,
	}

	b.nextIndex++
	b.lastChunkEnd = end
	return seg
}

// trimLocked discards samples already consumed by finalized segments.
// Caller holds b.mu.
func (b *Buffer) trimLocked() {
	consumed := b.lastChunkEnd - b.baseOffset
	if consumed <= 0 {
		return
	}
	remaining := len(b.samples) - consumed
	copy(b.samples, b.samples[consumed:])
	b.samples = b.samples[:remaining]
	b.baseOffset = b.lastChunkEnd
}

// BufferedDuration returns the duration of audio appended so far in seconds
func (b *Buffer) BufferedDuration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.totalSamples) / float64(b.sampleRate)
}

// PendingDuration returns the duration of audio not yet cut into a segment
func (b *Buffer) PendingDuration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.totalSamples-b.lastChunkEnd) / float64(b.sampleRate)
}

// Closed reports whether the buffer has been flushed and closed
func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// LastUpdate returns the time audio was last appended
func (b *Buffer) LastUpdate() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUpdate
}

// SampleRate returns the buffer's sample rate
func (b *Buffer) SampleRate() int {
	return b.sampleRate
}
