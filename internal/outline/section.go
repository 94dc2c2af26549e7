package outline

import "fmt"

// Section is one authoritative heading from the slide deck: title, ordered
// sub-bullets, originating slide numbers, and any extracted image paths.
// Sections preserve their slide order.
type Section struct {
	Title      string   `json:"title"`
	Bullets    []string `json:"bullets"`
	SlideRefs  []int    `json:"slide_refs"`
	ImagePaths []string `json:"image_paths"`
}

// Outline is the parsed result of one slide file
type Outline struct {
	FilePath string    `json:"file_path"`
	Sections []Section `json:"sections"`
}

// ParseError indicates a slide file could not be parsed into an outline
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse slide file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
