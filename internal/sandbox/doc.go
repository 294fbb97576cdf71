// Package sandbox provides preview lifecycle management for clippy-ctl.
//
// This package owns the booted sandbox and decides when dependencies must
// be installed and the dev server (re)started.
//
// # Session
//
// Session boots a runtime once per build session:
//
//	session := sandbox.NewSession(rt, sandbox.WithEnvironment(env))
//	inst, err := session.Boot(ctx)
//
// Capability failures (see Environment) are terminal. Boot failures are
// retried with exponential backoff. Concurrent Boot calls share a single
// in-flight boot.
//
// # Controller
//
// Controller is told about every new file tree through Observe. It starts
// an install/start cycle when the sandbox is ready, generation is idle, and
// the package.json content differs from the one used by the last cycle:
//
//  1. Mount the tree
//  2. Run the install command and wait for it
//  3. Listen for the dev server to report its URL
//  4. Start the dev server
//
// Only one cycle runs at a time. A tree observed while a cycle is running
// is re-evaluated when the cycle ends.
//
// # Output
//
// OutputFilter turns raw process output into log lines: ANSI sequences and
// control characters are stripped, spinner frames collapse into a
// throttled progress line, and only lines with known keywords are kept.
package sandbox
