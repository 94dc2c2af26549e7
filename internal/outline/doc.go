// Package outline models the authoritative slide outline: ordered sections
// with titles, bullets and slide references, a provider boundary for parsing
// slide files, and an inbox watcher that picks up newly dropped decks.
package outline
