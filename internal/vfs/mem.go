package vfs

import (
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory Store. It is the arena each pipeline stage runs in.
type MemStore struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
	used  int
}

// NewMemStore returns an empty store containing only the root directory.
func NewMemStore() *MemStore {
	return &MemStore{
		files: make(map[string][]byte),
		dirs:  map[string]struct{}{".": {}},
	}
}

// Mkdir creates a single directory. The parent must already exist.
func (m *MemStore) Mkdir(dir string) error {
	key, err := Clean(dir)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[key]; ok {
		return fmt.Errorf("mkdir %s: file exists", key)
	}
	if _, ok := m.dirs[Dir(key)]; !ok {
		return fmt.Errorf("mkdir %s: %w", key, ErrNotFound)
	}
	m.dirs[key] = struct{}{}
	return nil
}

func (m *MemStore) MkdirAll(dir string) error {
	key, err := Clean(dir)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for cur := key; cur != "."; cur = Dir(cur) {
		if _, ok := m.files[cur]; ok {
			return fmt.Errorf("mkdir %s: %s is a file", key, cur)
		}
	}
	for cur := key; cur != "."; cur = Dir(cur) {
		m.dirs[cur] = struct{}{}
	}
	return nil
}

func (m *MemStore) WriteFile(name string, data []byte) error {
	key, err := Clean(name)
	if err != nil {
		return err
	}
	if key == "." {
		return fmt.Errorf("write %q: %w", name, ErrIsDir)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dirs[key]; ok {
		return fmt.Errorf("write %s: %w", key, ErrIsDir)
	}
	if _, ok := m.dirs[Dir(key)]; !ok {
		return fmt.Errorf("write %s: parent directory: %w", key, ErrNotFound)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.used += len(buf) - len(m.files[key])
	m.files[key] = buf
	return nil
}

func (m *MemStore) ReadFile(name string) ([]byte, error) {
	key, err := Clean(name)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[key]
	if !ok {
		if _, isDir := m.dirs[key]; isDir {
			return nil, fmt.Errorf("read %s: %w", key, ErrIsDir)
		}
		return nil, fmt.Errorf("read %s: %w", key, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Dirs returns every directory except the root, in lexical order.
func (m *MemStore) Dirs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dirs := make([]string, 0, len(m.dirs))
	for dir := range m.dirs {
		if dir == "." {
			continue
		}
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// UsedBytes reports the total size of all stored files.
func (m *MemStore) UsedBytes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}
