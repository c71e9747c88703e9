package diagfmt

import "path"

func formatPath(p string, mode PathMode) string {
	if p == "" {
		return p
	}
	if mode == PathModeBasename {
		return path.Base(p)
	}
	return p
}

func limit(n, max int) int {
	if max > 0 && max < n {
		return max
	}
	return n
}
