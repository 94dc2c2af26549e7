package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boris-gans/note-gen/internal/merge"
	"github.com/boris-gans/note-gen/internal/notes"
)

func sampleDocument() *merge.Document {
	return &merge.Document{Sections: []merge.MergedSection{
		{
			Heading: "Recursion Basics",
			Fragments: []notes.Fragment{
				{
					Text:       "Recursion is a function calling itself",
					Citations:  []notes.Citation{{Start: 0, End: 60, ChunkIndex: 0}},
					Provenance: notes.ProvenanceMerged,
				},
				{
					Text: "Base cases terminate the chain",
					Citations: []notes.Citation{
						{Start: 60, End: 120, ChunkIndex: 1},
						{Start: 120, End: 180, ChunkIndex: 2},
					},
					Provenance: notes.ProvenanceMerged,
				},
			},
		},
		{Heading: merge.UnassignedTitle, Fragments: []notes.Fragment{}},
	}}
}

func TestRenderMarkdown(t *testing.T) {
	got := RenderMarkdown(sampleDocument())

	want := `## Recursion Basics
- Recursion is a function calling itself [^t0]
  [^t0]: 0s-60s
- Base cases terminate the chain [^t1][^t2]
  [^t1]: 60s-120s
  [^t2]: 120s-180s
`
	if got != want {
		t.Errorf("RenderMarkdown =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderMarkdownDeterministic(t *testing.T) {
	doc := sampleDocument()
	if RenderMarkdown(doc) != RenderMarkdown(doc) {
		t.Error("rendering not deterministic")
	}
}

func TestRenderMarkdownKeepsNonEmptyUnassigned(t *testing.T) {
	doc := sampleDocument()
	doc.Sections[1].Fragments = []notes.Fragment{
		{Text: "off-topic aside", Citations: []notes.Citation{{Start: 180, End: 240, ChunkIndex: 3}}},
	}

	got := RenderMarkdown(doc)
	if !strings.Contains(got, "## Unassigned") {
		t.Error("non-empty Unassigned section missing from render")
	}
	if !strings.Contains(got, "- off-topic aside [^t3]") {
		t.Error("unassigned fragment missing from render")
	}
}

func TestWriteDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.docx")

	if err := WriteDocx("Lecture 3", RenderMarkdown(sampleDocument()), path); err != nil {
		t.Fatalf("WriteDocx: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Error("docx file is empty")
	}
}
