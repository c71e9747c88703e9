package include

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zealbuild/internal/vfs"
)

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/zeal/files/headers/zos_sys.asm":
			_, _ = w.Write([]byte("; syscalls\n"))
		case "/zeal/files/big.bin":
			_, _ = w.Write(make([]byte, 64))
		case "/zeal/files/broken.asm":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/zeal", time.Second)
	ctx := context.Background()

	data, err := f.Fetch(ctx, "files/headers/zos_sys.asm")
	require.NoError(t, err)
	assert.Equal(t, "; syscalls\n", string(data))

	_, err = f.Fetch(ctx, "files/headers/missing.asm")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.Fetch(ctx, "files/broken.asm")
	assert.ErrorIs(t, err, ErrNotFound, "non-success statuses fall through to the next location")

	f.MaxBytes = 16
	_, err = f.Fetch(ctx, "files/big.bin")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestHTTPFetcherTransportFault(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(url, time.Second).Fetch(context.Background(), "files/a.asm")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStoreFetcher(t *testing.T) {
	s := vfs.NewMemStore()
	require.NoError(t, vfs.WriteFileAll(s, "files/a.asm", []byte("a")))
	f := StoreFetcher{Store: s}

	data, err := f.Fetch(context.Background(), "files/a.asm")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)

	_, err = f.Fetch(context.Background(), "files/b.asm")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.Fetch(context.Background(), "files")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCache(t *testing.T) {
	remote := newFakeRemote(map[string]string{"files/a.asm": "a"})
	c, err := NewMemoryCache(remote, 4)
	require.NoError(t, err)
	ctx := context.Background()

	for range 3 {
		data, err := c.Fetch(ctx, "files/a.asm")
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), data)
	}
	assert.Equal(t, 1, remote.calls["files/a.asm"])

	for range 2 {
		_, err := c.Fetch(ctx, "files/none.asm")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 2, remote.calls["files/none.asm"], "misses are not cached")
	assert.Equal(t, 1, c.Len())
}

func TestDiskCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	remote := newFakeRemote(map[string]string{"files/a.asm": "a"})
	ctx := context.Background()

	c, err := NewDiskCache(dir, remote, 0)
	require.NoError(t, err)
	data, err := c.Fetch(ctx, "files/a.asm")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)

	// A second cache over the same directory serves from disk.
	again, err := NewDiskCache(dir, remote, 0)
	require.NoError(t, err)
	data, err = again.Fetch(ctx, "files/a.asm")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)
	assert.Equal(t, 1, remote.calls["files/a.asm"])

	_, err = again.Fetch(ctx, "files/none.asm")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, again.DropAll())
	_, err = again.Fetch(ctx, "files/a.asm")
	require.NoError(t, err)
	assert.Equal(t, 2, remote.calls["files/a.asm"])
}

func TestDiskCacheExpires(t *testing.T) {
	remote := newFakeRemote(map[string]string{"files/a.asm": "a"})
	c, err := NewDiskCache(t.TempDir(), remote, time.Nanosecond)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Fetch(ctx, "files/a.asm")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = c.Fetch(ctx, "files/a.asm")
	require.NoError(t, err)
	assert.Equal(t, 2, remote.calls["files/a.asm"])
}

func TestCacheDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := CacheDir("zealbuild")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "zealbuild"), dir)
}

func TestNewS3FetcherValidates(t *testing.T) {
	_, err := NewS3Fetcher(S3Config{Bucket: "zeal"})
	assert.Error(t, err)
	_, err = NewS3Fetcher(S3Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
	_, err = NewS3Fetcher(S3Config{Endpoint: "localhost:9000", Bucket: "zeal", AccessKey: "only"})
	assert.Error(t, err)

	f, err := NewS3Fetcher(S3Config{Endpoint: "localhost:9000", Bucket: "zeal", Prefix: "/sdk/"})
	require.NoError(t, err)
	assert.Equal(t, "sdk/files/a.asm", f.objectKey("files/a.asm"))
}
