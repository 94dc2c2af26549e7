package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/boris-gans/note-gen/internal/notes"
	"github.com/boris-gans/note-gen/internal/transcript"
)

const synthesizePrompt = `You are a lecture note-taker. Given a rolling transcript of a lecture,
produce concise, well-structured notes. Capture key points, definitions, and
important details. If existing notes are provided, update and expand them;
do not repeat information that is already well-covered.

Respond with JSON matching exactly this schema:
{"sections":[{"title":"string","bullets":[{"text":"string","citation_refs":[0]}]}]}

citation_refs lists the chunk indices (shown as "chunk N" in the transcript)
that each bullet's content came from. Every bullet must cite at least one
chunk from the transcript below. Do not invent information.

Transcript so far:
%s

Existing notes:
%s

Produce updated lecture notes.`

// synthesisResponse mirrors the fixed JSON schema returned by the model
type synthesisResponse struct {
	Sections []struct {
		Title   string `json:"title"`
		Bullets []struct {
			Text         string `json:"text"`
			CitationRefs []int  `json:"citation_refs"`
		} `json:"bullets"`
	} `json:"sections"`
}

// Synthesize generates an updated notes draft from the rolling chunk window,
// producing one fragment per bullet with citations resolved against the
// window's chunk spans
func (c *Client) Synthesize(ctx context.Context, req notes.SynthesisRequest) (*notes.SynthesisResult, error) {
	existing := req.Draft
	if existing == "" {
		existing = "(none yet)"
	}
	prompt := fmt.Sprintf(synthesizePrompt, FormatWindow(req.Window), existing)

	var resp synthesisResponse
	if err := c.generateJSON(ctx, prompt, &resp); err != nil {
		return nil, &notes.SynthesisError{SessionID: req.SessionID, Err: err}
	}

	spans := make(map[int]transcript.Chunk, len(req.Window))
	for _, chunk := range req.Window {
		spans[chunk.Index] = chunk
	}

	result := &notes.SynthesisResult{Draft: renderDraft(resp)}
	for _, section := range resp.Sections {
		for _, bullet := range section.Bullets {
			frag := notes.Fragment{Text: bullet.Text}
			for _, ref := range bullet.CitationRefs {
				chunk, ok := spans[ref]
				if !ok {
					// A ref outside the window cannot be resolved to a span.
					continue
				}
				frag.Citations = append(frag.Citations, notes.Citation{
					Start:      chunk.Start,
					End:        chunk.End,
					ChunkIndex: chunk.Index,
				})
			}
			if len(frag.Citations) == 0 {
				continue
			}
			result.Fragments = append(result.Fragments, frag)
		}
	}

	return result, nil
}

// FormatWindow renders chunks as timestamped transcript lines for the model.
// Failed chunks carry no text and are skipped.
func FormatWindow(chunks []transcript.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		if c.Text == "" {
			continue
		}
		fmt.Fprintf(&b, "[chunk %d, %.0fs-%.0fs] %s\n", c.Index, c.Start, c.End, c.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderDraft flattens the structured response into the markdown draft kept
// as live-notes state
func renderDraft(resp synthesisResponse) string {
	var b strings.Builder
	for _, section := range resp.Sections {
		fmt.Fprintf(&b, "## %s\n", section.Title)
		for _, bullet := range section.Bullets {
			fmt.Fprintf(&b, "- %s\n", bullet.Text)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
