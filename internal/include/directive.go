// Package include discovers the dependencies of an assembly source by
// following its .include and .incbin directives through a local store and
// two remote locations.
package include

import (
	"bufio"
	"bytes"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind distinguishes text includes from binary blobs.
type Kind uint8

const (
	KindInclude Kind = iota + 1
	KindIncbin
)

func (k Kind) String() string {
	switch k {
	case KindInclude:
		return ".include"
	case KindIncbin:
		return ".incbin"
	default:
		return "unknown"
	}
}

// Directive is one dependency reference found in a source unit.
type Directive struct {
	Kind Kind
	Path string // as written between the quotes
	Line int    // 1-based
}

var directiveRe = regexp.MustCompile(`^[ \t]*\.(include|incbin)[ \t]+"([^"]+)"[ \t]*(?:;.*)?$`)

// Scan returns the directives of content in source order. The keyword is
// case-sensitive and must open the line.
func Scan(content []byte) []Directive {
	var out []Directive
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		m := directiveRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		kind := KindInclude
		if m[1] == "incbin" {
			kind = KindIncbin
		}
		out = append(out, Directive{Kind: kind, Path: m[2], Line: line})
	}
	return out
}

// Canonical maps a directive path onto the key used in a Bundle: NFC
// normalised, slash separated, cleaned and relative. It reports false for
// paths that are empty or climb above the source root.
func Canonical(p string) (string, bool) {
	p = strings.ReplaceAll(norm.NFC.String(strings.TrimSpace(p)), "\\", "/")
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", false
		}
	}
	p = strings.TrimLeft(path.Clean("/"+p), "/")
	if p == "" {
		return "", false
	}
	return p, true
}
