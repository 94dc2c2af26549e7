// Package export renders merged and polished notes for consumption outside
// the service: markdown with time citations, and docx.
package export
