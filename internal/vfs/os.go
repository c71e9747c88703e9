package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// OSStore exposes a host directory as a Store.
type OSStore struct {
	root string
}

// NewOSStore roots a store at dir. The directory is not created.
func NewOSStore(dir string) *OSStore {
	return &OSStore{root: dir}
}

// Root returns the host directory backing the store.
func (s *OSStore) Root() string {
	return s.root
}

func (s *OSStore) hostPath(name string) (string, error) {
	key, err := Clean(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *OSStore) MkdirAll(dir string) error {
	p, err := s.hostPath(dir)
	if err != nil {
		return err
	}
	return os.MkdirAll(p, 0o750)
}

func (s *OSStore) WriteFile(name string, data []byte) error {
	p, err := s.hostPath(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("write %s: parent directory: %w", name, ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *OSStore) ReadFile(name string) ([]byte, error) {
	p, err := s.hostPath(name)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is confined to the store root by Clean
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", name, ErrNotFound)
		}
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			if info, statErr := os.Stat(p); statErr == nil && info.IsDir() {
				return nil, fmt.Errorf("read %s: %w", name, ErrIsDir)
			}
		}
		return nil, err
	}
	return data, nil
}

func (s *OSStore) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
