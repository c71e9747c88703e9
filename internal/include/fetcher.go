package include

import (
	"context"
	"errors"
	"fmt"
	"path"

	"zealbuild/internal/vfs"
)

// ErrNotFound is returned by a Fetcher when the name does not exist at its
// location. Any other error is a transport fault.
var ErrNotFound = errors.New("include: not found")

// Fetcher retrieves a unit by its full name ("files/headers/zos_sys.asm").
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, name string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, name string) ([]byte, error) {
	return f(ctx, name)
}

// Location is a remote namespace: names are looked up under Prefix.
type Location struct {
	Prefix  string
	Fetcher Fetcher
}

// Name returns the unit name p resolves to at this location.
func (l Location) Name(p string) string {
	return path.Join(l.Prefix, p)
}

func (l Location) enabled() bool {
	return l.Fetcher != nil
}

// StoreFetcher serves names from a vfs.Store.
type StoreFetcher struct {
	Store vfs.Store
}

func (f StoreFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	data, err := f.Store.ReadFile(name)
	if err != nil {
		if errors.Is(err, vfs.ErrNotFound) || errors.Is(err, vfs.ErrIsDir) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}
