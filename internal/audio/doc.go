// Package audio implements the chunk buffer that accumulates streaming PCM
// samples and cuts them into fixed-duration segments, plus WAV encoding of
// finalized segments for the transcription capability.
package audio
