package export

import (
	"fmt"
	"strings"

	"github.com/boris-gans/note-gen/internal/merge"
)

// RenderMarkdown renders a merged document as markdown with inline time
// citations. Each fragment becomes a bullet carrying [^tN] markers, with the
// footnote definitions on the following indented lines. The rendering is
// deterministic: identical documents produce identical markdown.
func RenderMarkdown(doc *merge.Document) string {
	var lines []string
	for _, section := range doc.Sections {
		if len(section.Fragments) == 0 && section.Heading == merge.UnassignedTitle {
			continue
		}

		lines = append(lines, fmt.Sprintf("## %s", section.Heading))
		for _, frag := range section.Fragments {
			var markers strings.Builder
			for _, c := range frag.Citations {
				fmt.Fprintf(&markers, "[^t%d]", c.ChunkIndex)
			}
			bullet := fmt.Sprintf("- %s", frag.Text)
			if markers.Len() > 0 {
				bullet += " " + markers.String()
			}
			lines = append(lines, bullet)
			for _, c := range frag.Citations {
				lines = append(lines, fmt.Sprintf("  [^t%d]: %.0fs-%.0fs", c.ChunkIndex, c.Start, c.End))
			}
		}
		lines = append(lines, "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
}
