package filetree

import (
	"strings"

	"github.com/clippy-ai/clippy-ctl/internal/errors"
)

// Kind distinguishes files from folders.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is one entry of the project.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Kind     Kind    `json:"type"`
	Content  string  `json:"content,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Kind == KindFolder
}

func (n *Node) child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (n *Node) clone() *Node {
	c := &Node{Name: n.Name, Path: n.Path, Kind: n.Kind, Content: n.Content}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.clone()
		}
	}
	return c
}

// Tree holds the top-level nodes of a project.
type Tree struct {
	Root []*Node `json:"root"`
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// Change reports what an upsert did.
type Change int

const (
	Created Change = iota
	Updated
)

func (c Change) String() string {
	if c == Updated {
		return "updated"
	}
	return "created"
}

// File is a flattened file entry.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Split returns the non-empty segments of a slash path.
func Split(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" && s != "." {
			segs = append(segs, s)
		}
	}
	return segs
}

// Upsert writes content at path, creating intermediate folders as needed.
// An existing file is overwritten in place. Writing through or onto a
// path of the other kind fails with a PathConflict error and the tree is
// not modified.
func (t *Tree) Upsert(path, content string) (Change, error) {
	segs := Split(path)
	if len(segs) == 0 {
		return Created, errors.ValidationError("empty file path")
	}

	// Check the whole walk before touching anything.
	level := t.Root
	current := ""
	for i, seg := range segs {
		current += "/" + seg
		existing := find(level, seg)
		if existing == nil {
			break
		}
		last := i == len(segs)-1
		if last && existing.IsFolder() {
			return Created, errors.PathConflict(current, "folder")
		}
		if !last && !existing.IsFolder() {
			return Created, errors.PathConflict(joinPath(segs), "file "+existing.Path)
		}
		level = existing.Children
	}

	children := &t.Root
	current = ""
	for _, seg := range segs[:len(segs)-1] {
		current += "/" + seg
		folder := find(*children, seg)
		if folder == nil {
			folder = &Node{Name: seg, Path: current, Kind: KindFolder, Children: []*Node{}}
			*children = append(*children, folder)
		}
		children = &folder.Children
	}

	name := segs[len(segs)-1]
	if file := find(*children, name); file != nil {
		file.Content = content
		return Updated, nil
	}
	*children = append(*children, &Node{
		Name:    name,
		Path:    joinPath(segs),
		Kind:    KindFile,
		Content: content,
	})
	return Created, nil
}

func find(nodes []*Node, name string) *Node {
	for _, n := range nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func joinPath(segs []string) string {
	return "/" + strings.Join(segs, "/")
}

// Get returns the node at path, or nil.
func (t *Tree) Get(path string) *Node {
	segs := Split(path)
	if len(segs) == 0 {
		return nil
	}
	n := find(t.Root, segs[0])
	for _, seg := range segs[1:] {
		if n == nil || !n.IsFolder() {
			return nil
		}
		n = n.child(seg)
	}
	return n
}

// FindFile returns the first file named name in depth-first order, or nil.
func (t *Tree) FindFile(name string) *Node {
	return findFile(t.Root, name)
}

func findFile(nodes []*Node, name string) *Node {
	for _, n := range nodes {
		if !n.IsFolder() {
			if n.Name == name {
				return n
			}
			continue
		}
		if found := findFile(n.Children, name); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits every node depth-first, parents before children.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	walk(t.Root, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(*Node, int)) {
	for _, n := range nodes {
		fn(n, depth)
		if n.IsFolder() {
			walk(n.Children, depth+1, fn)
		}
	}
}

// Flatten lists every file in depth-first order.
func (t *Tree) Flatten() []File {
	var files []File
	t.Walk(func(n *Node, _ int) {
		if !n.IsFolder() {
			files = append(files, File{Path: n.Path, Content: n.Content})
		}
	})
	return files
}

// Len returns the number of nodes, folders included.
func (t *Tree) Len() int {
	count := 0
	t.Walk(func(*Node, int) { count++ })
	return count
}

// Empty reports whether the tree has no nodes.
func (t *Tree) Empty() bool {
	return t == nil || len(t.Root) == 0
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return New()
	}
	c := &Tree{Root: make([]*Node, len(t.Root))}
	for i, n := range t.Root {
		c.Root[i] = n.clone()
	}
	return c
}
