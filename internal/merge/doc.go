// Package merge implements the deterministic outline merge: assigning
// live-layer note fragments to slide outline sections by lexical match
// score, with a terminal Unassigned section for fragments below threshold.
package merge
