package include

import (
	"path"
	"slices"
)

// Unit is one resolved dependency.
type Unit struct {
	Name   string
	Data   []byte
	Binary bool // fetched for .incbin; never scanned
}

// Bundle maps unit names to their content. Each name is stored once.
type Bundle map[string]Unit

// Names returns the unit names in sorted order.
func (b Bundle) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dirs returns every directory prefix of the unit names, sorted. Units at
// the top level contribute nothing.
func (b Bundle) Dirs() []string {
	set := make(map[string]struct{})
	for name := range b {
		for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
			set[dir] = struct{}{}
		}
	}
	dirs := make([]string, 0, len(set))
	for dir := range set {
		dirs = append(dirs, dir)
	}
	slices.Sort(dirs)
	return dirs
}

// Size returns the total number of content bytes.
func (b Bundle) Size() int {
	n := 0
	for _, u := range b {
		n += len(u.Data)
	}
	return n
}
