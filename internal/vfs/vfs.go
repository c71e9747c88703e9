// Package vfs provides the file store capability the build stages run against.
//
// A Store is a flat key/content space with directories. Keys are
// slash-separated paths relative to the store root. Every pipeline stage gets a
// fresh store of its own, so nothing written by one stage is visible to another
// unless it is handed over explicitly.
package vfs

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidName = errors.New("invalid file name")
	ErrIsDir       = errors.New("is a directory")
)

// Store is the capability stages and resolvers need from a file system.
type Store interface {
	// MkdirAll creates dir and all missing parents.
	MkdirAll(dir string) error
	// WriteFile creates or replaces name. The parent directory must exist.
	WriteFile(name string, data []byte) error
	// ReadFile returns a copy of the contents of name.
	ReadFile(name string) ([]byte, error)
	// List returns all file names in lexical order.
	List() ([]string, error)
}

// Clean normalises name into a store key. The root itself is ".".
func Clean(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	cleaned := path.Clean("/" + name)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return ".", nil
	}
	// path.Clean on a rooted path already removed any "..", so a leftover
	// segment means the caller tried to escape the root.
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes the store root", ErrInvalidName, name)
		}
	}
	return cleaned, nil
}

// Dir returns the parent directory key of name ("." for top-level names).
func Dir(name string) string {
	return path.Dir(name)
}

// WriteFileAll writes name after creating its parent directories.
func WriteFileAll(s Store, name string, data []byte) error {
	if dir := Dir(name); dir != "." {
		if err := s.MkdirAll(dir); err != nil {
			return err
		}
	}
	return s.WriteFile(name, data)
}

// Copy writes every file of src into dst under the same name.
func Copy(dst, src Store) error {
	names, err := src.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		data, err := src.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := WriteFileAll(dst, name, data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
