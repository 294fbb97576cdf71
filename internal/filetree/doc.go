// Package filetree models the generated project as a path-addressed tree.
//
// Paths are slash-delimited and rooted at "/". Folders are created on
// demand when a file below them is written; files are upserted with
// last-write-wins semantics. A path may never name both a file and a
// folder: such writes are rejected with a structural error and leave the
// tree unchanged.
//
// Trees are mutable. Code that publishes a tree to concurrent readers
// works on a Clone and swaps the reference once it is done.
package filetree
