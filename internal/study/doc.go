// Package study generates post-lecture study material (guides and quizzes)
// from a session's notes and persists the generated artifacts.
package study
