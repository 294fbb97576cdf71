// Package builder drives a build session end to end.
//
// A Builder takes the user's prompt to the backend, feeds the returned
// directives through the reconciler, and keeps the sandbox preview in
// step with the resulting file tree. Sandbox boot starts together with
// generation; whichever finishes last triggers the first preview cycle.
package builder
