package outline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider parses a slide file into ordered outline sections. Parsing
// internals are an exchangeable boundary; implementations exist per format.
type Provider interface {
	Parse(ctx context.Context, path string) (*Outline, error)
	Supports(path string) bool
}

// TextProvider parses plain-text and markdown outlines. Each "# " or "## "
// line starts a new section; "-" and "*" lines under it become bullets.
// A file with no heading lines yields one section titled after the file.
type TextProvider struct{}

// NewTextProvider creates a provider for .md and .txt outline files
func NewTextProvider() *TextProvider {
	return &TextProvider{}
}

// Supports reports whether the file extension is handled by this provider
func (p *TextProvider) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		return true
	}
	return false
}

// Parse reads the file and builds sections from headings and bullets
func (p *TextProvider) Parse(ctx context.Context, path string) (*Outline, error) {
	if !p.Supports(path) {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("unsupported format %s", filepath.Ext(path))}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	var sections []Section
	var current *Section
	slideNum := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if title, ok := headingText(line); ok {
			if current != nil {
				sections = append(sections, *current)
			}
			slideNum++
			current = &Section{
				Title:      title,
				Bullets:    []string{},
				SlideRefs:  []int{slideNum},
				ImagePaths: []string{},
			}
			continue
		}

		bullet := strings.TrimSpace(strings.TrimLeft(line, "-*"))
		if current == nil {
			slideNum++
			current = &Section{
				Title:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
				Bullets:    []string{},
				SlideRefs:  []int{slideNum},
				ImagePaths: []string{},
			}
		}
		if bullet != "" {
			current.Bullets = append(current.Bullets, bullet)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if current != nil {
		sections = append(sections, *current)
	}

	return &Outline{FilePath: path, Sections: sections}, nil
}

func headingText(line string) (string, bool) {
	for _, prefix := range []string{"### ", "## ", "# "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}
