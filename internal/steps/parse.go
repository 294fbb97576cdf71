package steps

import (
	"path"
	"regexp"
	"strings"
)

// DefaultArtifactTitle is used for artifacts without a title attribute.
const DefaultArtifactTitle = "Project Files"

var (
	artifactRe = regexp.MustCompile(`(?s)<boltArtifact\b([^>]*)>(.*?)</boltArtifact>`)
	actionRe   = regexp.MustCompile(`(?s)<boltAction\b([^>]*)>(.*?)</boltAction>`)
	attrRe     = regexp.MustCompile(`([A-Za-z_][\w-]*)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// Parse extracts steps from directive text. IDs start at startID and
// increase by one per step so the output of several passes can be
// concatenated. A startID below 1 is treated as 1.
//
// File content is kept as written, trailing newline included. Only the
// line break after the opening tag and the indentation before the closing
// tag are dropped. Shell commands are trimmed.
func Parse(text string, startID int) []Step {
	if startID < 1 {
		startID = 1
	}
	p := &parser{next: startID}

	artifacts := artifactRe.FindAllStringSubmatch(text, -1)
	if len(artifacts) == 0 {
		// Bare actions without an enclosing artifact still count.
		p.actions(text)
		return p.out
	}

	for _, m := range artifacts {
		title := attrs(m[1])["title"]
		if title == "" {
			title = DefaultArtifactTitle
		}
		p.add(Step{Kind: KindOther, Title: title})
		p.actions(m[2])
	}
	return p.out
}

type parser struct {
	next int
	out  []Step
}

func (p *parser) add(s Step) {
	s.ID = p.next
	s.Status = StatusPending
	p.next++
	p.out = append(p.out, s)
}

func (p *parser) actions(body string) {
	for _, m := range actionRe.FindAllStringSubmatch(body, -1) {
		a := attrs(m[1])

		switch a["type"] {
		case "file":
			target := NormalizePath(a["filePath"])
			if target == "" {
				continue
			}
			p.add(Step{
				Kind:  KindCreateFile,
				Title: "Create " + target,
				Path:  target,
				Code:  fileContent(m[2]),
			})
		case "shell":
			content := strings.TrimSpace(m[2])
			if content == "" {
				continue
			}
			p.add(Step{
				Kind:  KindRunCommand,
				Title: "Run command",
				Code:  content,
			})
		}
	}
}

func fileContent(body string) string {
	if rest, ok := strings.CutPrefix(body, "\r\n"); ok {
		body = rest
	} else {
		body = strings.TrimPrefix(body, "\n")
	}
	return strings.TrimRight(body, " \t")
}

func attrs(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range attrRe.FindAllStringSubmatch(s, -1) {
		if m[2] != "" {
			out[m[1]] = m[2]
		} else {
			out[m[1]] = m[3]
		}
	}
	return out
}

// NormalizePath returns p as a clean slash path rooted at "/".
// It returns "" when p names no file.
func NormalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" {
		return ""
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return ""
	}
	return cleaned
}
