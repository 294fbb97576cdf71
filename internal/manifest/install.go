package manifest

import (
	"regexp"
	"slices"
	"strings"

	"github.com/kballard/go-shellquote"
)

// FileName is the manifest file looked up in generated projects.
const FileName = "package.json"

// LatestVersion is the placeholder range for packages without one.
const LatestVersion = "latest"

// Dependency sections of package.json.
const (
	SectionDependencies    = "dependencies"
	SectionDevDependencies = "devDependencies"
)

// Package is a requested dependency.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (p Package) String() string {
	return p.Name + "@" + p.Version
}

// Install is the set of packages requested by one command line.
type Install struct {
	Manager         string
	Dependencies    []Package
	DevDependencies []Package
}

// Names lists every requested package name.
func (i Install) Names() []string {
	names := make([]string, 0, len(i.Dependencies)+len(i.DevDependencies))
	for _, p := range i.Dependencies {
		names = append(names, p.Name)
	}
	for _, p := range i.DevDependencies {
		names = append(names, p.Name)
	}
	return names
}

// installVerbs maps package managers to the subcommands that add packages.
var installVerbs = map[string][]string{
	"npm":  {"install", "i", "add"},
	"yarn": {"add"},
	"pnpm": {"add", "install", "i"},
	"bun":  {"add", "install", "i"},
}

var devFlags = map[string]bool{
	"-D":         true,
	"--save-dev": true,
	"--dev":      true,
}

var conjunctions = map[string]bool{
	"&&": true,
	"||": true,
	";":  true,
	"|":  true,
	"&":  true,
}

var packageNameRe = regexp.MustCompile(`^(@[a-zA-Z0-9~][\w.~-]*/)?[a-zA-Z0-9~][\w.~-]*$`)

// ParseInstall extracts the packages installed by command. It reports
// false when the command installs nothing by name.
func ParseInstall(command string) (Install, bool) {
	var result Install
	tokens := tokenize(command)

	for i := 0; i < len(tokens); i++ {
		verbs, ok := installVerbs[tokens[i]]
		if !ok || i+1 >= len(tokens) || !slices.Contains(verbs, tokens[i+1]) {
			continue
		}
		if result.Manager == "" {
			result.Manager = tokens[i]
		}

		var pkgs []Package
		dev := false
		j := i + 2
		for ; j < len(tokens) && !conjunctions[tokens[j]]; j++ {
			tok := tokens[j]
			if tok == "" {
				continue
			}
			if strings.HasPrefix(tok, "-") {
				if devFlags[tok] {
					dev = true
				}
				continue
			}
			if pkg, ok := parsePackage(tok); ok {
				pkgs = append(pkgs, pkg)
			}
		}

		if dev {
			result.DevDependencies = merge(result.DevDependencies, pkgs)
		} else {
			result.Dependencies = merge(result.Dependencies, pkgs)
		}
		i = j
	}

	return result, len(result.Dependencies)+len(result.DevDependencies) > 0
}

// tokenize splits a command line into words, isolating shell operators.
func tokenize(command string) []string {
	words, err := shellquote.Split(command)
	if err != nil {
		words = strings.Fields(command)
	}

	var tokens []string
	for _, w := range words {
		tokens = append(tokens, splitOperators(w)...)
	}
	return tokens
}

// splitOperators breaks words like "lodash&&npm" into "lodash", "&&", "npm".
func splitOperators(word string) []string {
	var out []string
	start := 0
	for i := 0; i < len(word); {
		op := ""
		switch {
		case strings.HasPrefix(word[i:], "&&"), strings.HasPrefix(word[i:], "||"):
			op = word[i : i+2]
		case word[i] == ';', word[i] == '|', word[i] == '&':
			op = word[i : i+1]
		}
		if op == "" {
			i++
			continue
		}
		if i > start {
			out = append(out, word[start:i])
		}
		out = append(out, op)
		i += len(op)
		start = i
	}
	if start < len(word) {
		out = append(out, word[start:])
	}
	return out
}

func parsePackage(tok string) (Package, bool) {
	name, version := tok, LatestVersion
	if at := strings.LastIndex(tok, "@"); at > 0 {
		name, version = tok[:at], tok[at+1:]
		if version == "" {
			version = LatestVersion
		}
	}
	if !packageNameRe.MatchString(name) {
		return Package{}, false
	}
	return Package{Name: name, Version: version}, true
}

// merge appends pkgs to list, replacing entries that share a name.
func merge(list, pkgs []Package) []Package {
	for _, p := range pkgs {
		replaced := false
		for i := range list {
			if list[i].Name == p.Name {
				list[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, p)
		}
	}
	return list
}
