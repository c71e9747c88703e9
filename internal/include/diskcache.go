package include

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when diskEntry changes.
const diskCacheSchemaVersion uint16 = 1

// DiskCache persists hits of an inner Fetcher across runs.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu     sync.RWMutex
	dir    string
	inner  Fetcher
	maxAge time.Duration
}

type diskEntry struct {
	Schema  uint16
	Name    string
	Data    []byte
	Fetched time.Time
}

// CacheDir returns the default cache directory for app, honouring
// XDG_CACHE_HOME.
func CacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// NewDiskCache wraps inner with a cache rooted at dir. Entries older than
// maxAge are refetched; maxAge 0 keeps them forever.
func NewDiskCache(dir string, inner Fetcher, maxAge time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir, inner: inner, maxAge: maxAge}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	return c.dir
}

func (c *DiskCache) pathFor(name string) string {
	sum := sha256.Sum256([]byte(name))
	return filepath.Join(c.dir, "includes", hex.EncodeToString(sum[:])+".mp")
}

func (c *DiskCache) Fetch(ctx context.Context, name string) ([]byte, error) {
	if data, ok := c.get(name); ok {
		return data, nil
	}
	data, err := c.inner.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	// A cache that cannot be written only costs a refetch next time.
	_ = c.put(name, data)
	return data, nil
}

func (c *DiskCache) get(name string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(name))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var e diskEntry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false
	}
	if e.Schema != diskCacheSchemaVersion || e.Name != name {
		return nil, false
	}
	if c.maxAge > 0 && time.Since(e.Fetched) > c.maxAge {
		return nil, false
	}
	return e.Data, true
}

func (c *DiskCache) put(name string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) // no-op after a successful rename

	err = msgpack.NewEncoder(f).Encode(&diskEntry{
		Schema:  diskCacheSchemaVersion,
		Name:    name,
		Data:    data,
		Fetched: time.Now(),
	})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// DropAll removes every cached entry.
func (c *DiskCache) DropAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.RemoveAll(filepath.Join(c.dir, "includes"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
