// Package runtime provides the sandbox runtimes that run generated projects.
//
// Supported runtimes:
//   - local: node and npm on the host, one temporary directory per session
//   - docker: a node container with the project directory bind-mounted
//   - podman: same as docker, through the podman CLI
//
// Runtime selection is automatic based on the tools available on PATH.
// Use New with a Config to construct one, or construct specific
// implementations directly for testing.
//
// # Runtime Interface
//
// A Runtime checks its preconditions (Preflight) and boots Instances.
// Preflight failures are capability errors and are never retried; Boot
// failures are.
//
// An Instance accepts mount projections, spawns processes and reports
// dev servers that start listening. A Process exposes its combined
// output as a stream of raw chunks, its exit code, and a way to kill it.
//
// # Mock Runtime
//
// For testing, use NewMockRuntime() to create a scriptable implementation
// whose boots, processes and server-ready notifications are configured up
// front and whose calls are recorded for verification.
package runtime
