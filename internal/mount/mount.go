package mount

import (
	"encoding/json"
	"os"
	"path"
	"sort"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/clippy-ai/clippy-ctl/internal/filetree"
)

// Tree maps entry names to entries at one directory level.
type Tree map[string]Entry

// Entry is either a directory or a file.
type Entry struct {
	Directory Tree  `json:"directory,omitempty"`
	File      *File `json:"file,omitempty"`
}

// File carries file contents.
type File struct {
	Contents string `json:"contents"`
}

// IsFile reports whether the entry is a file.
func (e Entry) IsFile() bool {
	return e.File != nil
}

// MarshalJSON always emits exactly one of "directory" or "file", so
// empty directories keep their key.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.File != nil {
		return json.Marshal(struct {
			File *File `json:"file"`
		}{e.File})
	}
	dir := e.Directory
	if dir == nil {
		dir = Tree{}
	}
	return json.Marshal(struct {
		Directory Tree `json:"directory"`
	}{dir})
}

// Project converts a file tree into its mount representation.
func Project(tree *filetree.Tree) Tree {
	if tree == nil {
		return Tree{}
	}
	return project(tree.Root)
}

func project(nodes []*filetree.Node) Tree {
	out := make(Tree, len(nodes))
	for _, n := range nodes {
		if n.IsFolder() {
			out[n.Name] = Entry{Directory: project(n.Children)}
			continue
		}
		out[n.Name] = Entry{File: &File{Contents: n.Content}}
	}
	return out
}

// Files lists the path of every file in the projection, sorted.
func Files(t Tree) []string {
	var paths []string
	collect(t, "/", func(p string, _ *File) {
		paths = append(paths, p)
	})
	sort.Strings(paths)
	return paths
}

func collect(t Tree, dir string, fn func(string, *File)) {
	for name, e := range t {
		p := path.Join(dir, name)
		if e.IsFile() {
			fn(p, e.File)
			continue
		}
		collect(e.Directory, p, fn)
	}
}

// Materialize writes every directory and file of t onto fs. Existing
// files are overwritten; nothing is removed.
func Materialize(fs billy.Filesystem, t Tree) error {
	return materialize(fs, "/", t)
}

func materialize(fs billy.Filesystem, dir string, t Tree) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, e := range t {
		p := path.Join(dir, name)
		if e.IsFile() {
			if err := util.WriteFile(fs, p, []byte(e.File.Contents), os.FileMode(0o644)); err != nil {
				return err
			}
			continue
		}
		if err := materialize(fs, p, e.Directory); err != nil {
			return err
		}
	}
	return nil
}
