package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newTestCache returns a Cache rooted in a fresh temp directory.
func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	if opts.Root == "" {
		opts.Root = filepath.Join(t.TempDir(), "cache")
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func expectedPath(root, key string) string {
	sum := sha1.Sum([]byte(key))
	digest := hex.EncodeToString(sum[:])
	return filepath.Join(root, digest[:2], digest[2:4], digest+".cache")
}
