package outline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeOutlineFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestTextProviderParsesHeadingsAndBullets(t *testing.T) {
	path := writeOutlineFile(t, "lecture.md", `# Recursion Basics
- definition of recursion
- base case and recursive case

## Debugging
* stack traces
* common pitfalls
`)

	p := NewTextProvider()
	outline, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(outline.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(outline.Sections))
	}

	first := outline.Sections[0]
	if first.Title != "Recursion Basics" {
		t.Errorf("first title = %q", first.Title)
	}
	if len(first.Bullets) != 2 || first.Bullets[0] != "definition of recursion" {
		t.Errorf("first bullets = %v", first.Bullets)
	}
	if len(first.SlideRefs) != 1 || first.SlideRefs[0] != 1 {
		t.Errorf("first slide refs = %v", first.SlideRefs)
	}

	second := outline.Sections[1]
	if second.Title != "Debugging" {
		t.Errorf("second title = %q", second.Title)
	}
	if len(second.Bullets) != 2 {
		t.Errorf("second bullets = %v", second.Bullets)
	}
}

func TestTextProviderNoHeadingsFallsBackToFilename(t *testing.T) {
	path := writeOutlineFile(t, "week3.txt", "- only bullets\n- no headings\n")

	p := NewTextProvider()
	outline, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(outline.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(outline.Sections))
	}
	if outline.Sections[0].Title != "week3" {
		t.Errorf("title = %q", outline.Sections[0].Title)
	}
	if len(outline.Sections[0].Bullets) != 2 {
		t.Errorf("bullets = %v", outline.Sections[0].Bullets)
	}
}

func TestTextProviderRejectsUnsupportedFormat(t *testing.T) {
	p := NewTextProvider()
	if p.Supports("deck.pdf") {
		t.Error("pdf should not be supported by the text provider")
	}
	if _, err := p.Parse(context.Background(), "deck.pdf"); err == nil {
		t.Error("expected parse error for unsupported format")
	}
}
