// Package mount projects the project file tree into the nested record
// shape accepted by sandbox runtimes:
//
//	{"src": {"directory": {"main.ts": {"file": {"contents": "..."}}}}}
//
// Project is pure. Materialize writes a projection onto a billy
// filesystem, which is how host and container runtimes receive it.
package mount
