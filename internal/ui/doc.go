// Package ui renders end-of-run summaries for the CLI.
//
// Styled boxes are only used when stdout is a terminal; piped output
// falls back to plain text so scripts can parse it.
package ui
