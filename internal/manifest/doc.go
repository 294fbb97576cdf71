// Package manifest reads package-install commands and edits package.json.
//
// ParseInstall recognizes npm, yarn, pnpm and bun install invocations in
// a shell command and extracts the requested packages. AddDependencies
// inserts those packages into a package.json document using tidwall/sjson,
// which keeps unknown fields and key order intact, and re-indents the
// result with tidwall/pretty.
//
// This package never resolves versions or checks that a package exists.
package manifest
