package manifest

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/clippy-ai/clippy-ctl/internal/errors"
)

var prettyOptions = &pretty.Options{
	Width:    80,
	Prefix:   "",
	Indent:   "  ",
	SortKeys: false,
}

// Result describes what happened to one requested package.
type Result struct {
	Package
	// Present is set when the manifest already declared the package and
	// nothing was written.
	Present bool
}

// AddDependencies declares pkgs in section of the package.json document
// content. Bare names (version "latest") never override an existing
// declaration; explicit ranges do. When nothing changes the original text
// is returned untouched.
func AddDependencies(content, section string, pkgs []Package) (string, []Result, error) {
	if !gjson.Valid(content) {
		return content, nil, errors.New(errors.ExitManifest, "manifest is not valid JSON")
	}
	if !gjson.Parse(content).IsObject() {
		return content, nil, errors.New(errors.ExitManifest, "manifest is not a JSON object")
	}
	if existing := gjson.Get(content, escape(section)); existing.Exists() && !existing.IsObject() {
		return content, nil, errors.New(errors.ExitManifest, fmt.Sprintf("%s is not an object", section))
	}

	out := content
	changed := false
	results := make([]Result, 0, len(pkgs))

	for _, pkg := range pkgs {
		key := escape(section) + "." + escape(pkg.Name)
		current := gjson.Get(out, key)
		if current.Exists() && (pkg.Version == LatestVersion || current.String() == pkg.Version) {
			results = append(results, Result{Package: Package{Name: pkg.Name, Version: current.String()}, Present: true})
			continue
		}

		next, err := sjson.Set(out, key, pkg.Version)
		if err != nil {
			return content, nil, errors.Wrap(errors.ExitManifest, fmt.Sprintf("set %s", pkg.Name), err)
		}
		out = next
		changed = true
		results = append(results, Result{Package: pkg})
	}

	if !changed {
		return content, results, nil
	}
	return string(pretty.PrettyOptions([]byte(out), prettyOptions)), results, nil
}

// Dependencies returns the declarations of section as name to range.
func Dependencies(content, section string) map[string]string {
	deps := make(map[string]string)
	gjson.Get(content, escape(section)).ForEach(func(key, value gjson.Result) bool {
		deps[key.String()] = value.String()
		return true
	})
	return deps
}

// escape quotes path syntax in a single gjson/sjson key.
func escape(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', ':', '[', ']', '{', '}', '(', ')', ',':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
