// Package reconcile applies pending build steps to the project file tree.
//
// A Reconciler owns the step list and the current tree. Every Enqueue
// runs one pass: each pending step is applied once, in order, against a
// copy of the tree; then all pending steps are marked completed and the
// copy replaces the published tree. Readers therefore only ever see
// whole passes.
//
// Create-file steps upsert the file. Run-command steps that install
// packages are reflected in package.json; no command is executed here.
package reconcile
