package mount

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippy-ai/clippy-ctl/internal/filetree"
)

func buildTree(t *testing.T, files map[string]string) *filetree.Tree {
	t.Helper()
	tree := filetree.New()
	for p, c := range files {
		_, err := tree.Upsert(p, c)
		require.NoError(t, err)
	}
	return tree
}

func TestProject_RoundTripDeep(t *testing.T) {
	files := map[string]string{
		"/package.json":                       `{"name":"x"}`,
		"/index.html":                         "<div id=root></div>",
		"/src/main.tsx":                       "main",
		"/src/components/Button.tsx":          "button",
		"/src/components/forms/Input.tsx":     "input",
		"/src/components/forms/lib/mask.ts":   "mask",
		"/public/favicon.svg":                 "",
		"/src/components/forms/lib/format.ts": "format",
	}
	tree := buildTree(t, files)

	projected := Project(tree)

	got := make(map[string]string)
	collect(projected, "/", func(p string, f *File) { got[p] = f.Contents })
	assert.Equal(t, files, got)

	src := projected["src"].Directory
	assert.ElementsMatch(t, []string{"main.tsx", "components"}, keys(src))
	forms := src["components"].Directory["forms"].Directory
	assert.ElementsMatch(t, []string{"Input.tsx", "lib"}, keys(forms))
	assert.ElementsMatch(t, []string{"mask.ts", "format.ts"}, keys(forms["lib"].Directory))
	assert.ElementsMatch(t, []string{"package.json", "index.html", "src", "public"}, keys(projected))
}

func keys(t Tree) []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	return out
}

func TestProject_Empty(t *testing.T) {
	assert.Empty(t, Project(nil))
	assert.Empty(t, Project(filetree.New()))
}

func TestProject_DoesNotAliasTree(t *testing.T) {
	tree := buildTree(t, map[string]string{"/a.txt": "before"})
	projected := Project(tree)
	_, err := tree.Upsert("/a.txt", "after")
	require.NoError(t, err)

	assert.Equal(t, "before", projected["a.txt"].File.Contents)
}

func TestEntry_JSONShape(t *testing.T) {
	tree := Tree{
		"src": {Directory: Tree{
			"main.ts": {File: &File{Contents: "console.log(1)"}},
		}},
		"empty": {Directory: Tree{}},
		"blank": {File: &File{}},
	}

	data, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"src": {"directory": {"main.ts": {"file": {"contents": "console.log(1)"}}}},
		"empty": {"directory": {}},
		"blank": {"file": {"contents": ""}}
	}`, string(data))

	var back Tree
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "console.log(1)", back["src"].Directory["main.ts"].File.Contents)
	assert.True(t, back["blank"].IsFile())
}

func TestFiles(t *testing.T) {
	tree := buildTree(t, map[string]string{"/b.ts": "", "/a/c.ts": "", "/a/b/d.ts": ""})
	assert.Equal(t, []string{"/a/b/d.ts", "/a/c.ts", "/b.ts"}, Files(Project(tree)))
}

func TestMaterialize(t *testing.T) {
	fs := memfs.New()
	tree := buildTree(t, map[string]string{
		"/package.json":        `{"name":"x"}`,
		"/src/lib/util/fmt.ts": "export {}",
	})

	require.NoError(t, Materialize(fs, Project(tree)))

	f, err := fs.Open("/src/lib/util/fmt.ts")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "export {}", string(data))

	info, err := fs.Stat("/src/lib")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = tree.Upsert("/package.json", `{"name":"y"}`)
	require.NoError(t, err)
	require.NoError(t, Materialize(fs, Project(tree)))

	f, err = fs.Open("/package.json")
	require.NoError(t, err)
	data, err = io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"y"}`, string(data))
}
