// Package logging provides logging utilities for clippy-ctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// The operator-facing build log (file creation, npm output, server
// readiness) is not part of this package; it lives in logsink and is
// rendered by the CLI, the TUI or the websocket viewer.
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("reconciling steps", "pending", n)
//	logging.Warn("boot attempt failed", "attempt", attempt, "error", err)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Generating project for %q...", prompt)
//	logging.UserSuccess("Preview ready at %s", url)
//	logging.UserWarning("Sandbox unavailable: %v", err)
//	logging.UserError("Build failed: %v", err)
//
// Output destinations default to stdout (info, success) and stderr
// (warning, error) and can be redirected with SetUserOutput.
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
