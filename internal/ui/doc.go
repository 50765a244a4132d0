// Package ui provides terminal UI components for the mikettle CLI.
//
// Lipgloss renders the one-shot output of commands (status boxes, success
// and error boxes, confirmation prompts). Bubble Tea drives the interactive
// watch screen, which polls the kettle on an interval and redraws.
//
// # Components
//
//   - Printer: writes headers, success and error boxes to a writer
//   - RenderStatus: a status reading with a temperature bar
//   - Confirm: a warning box that asks the user to type an answer
//   - WatchModel: the live watch screen (spinner, key help, polling)
//
// # Logging Integration
//
// This package expects logging to be controlled via the MIKETTLE_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
