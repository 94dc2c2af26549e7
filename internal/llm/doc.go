// Package llm is the Gemini-backed capability client: rolling note
// synthesis, polishing, study guide and quiz generation. All calls expect
// structured JSON responses and rotate API keys on rate limits.
package llm
