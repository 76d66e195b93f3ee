package cache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

const (
	// DefaultDirName 是未指定 Root 时在系统临时目录下使用的子目录名。
	DefaultDirName = "cache"
	// DefaultDirMode 为属主与属组提供 rwx。
	DefaultDirMode os.FileMode = 0o775
	// DefaultFileMode 为属主与属组提供 rw。
	DefaultFileMode os.FileMode = 0o664
)

// Options 描述一个缓存实例的全部配置，零值字段回退到默认值。
type Options struct {
	// Root is the cache directory. Empty means os.TempDir()/cache.
	Root string
	// DefaultTTL applies when Set receives NoTTL. Zero means DefaultLifetime.
	DefaultTTL time.Duration
	DirMode    os.FileMode
	FileMode   os.FileMode
	Hash       HashFunc
	Serializer Serializer
	Expiry     Expiry
	Fs         afero.Fs
	Logger     *logrus.Logger
	Now        func() time.Time
}

// Cache is a file-backed key/value store rooted at a single directory.
// Methods are safe for concurrent use except Clear (see Clear).
type Cache struct {
	root       string
	defaultTTL time.Duration
	dirMode    os.FileMode
	fileMode   os.FileMode
	hash       HashFunc
	serializer Serializer
	expiry     Expiry
	fs         afero.Fs
	logger     *logrus.Logger
	now        func() time.Time

	locks entryLocks
}

// New 以 opts.Root 为根目录构建缓存实例，并立即创建根目录。
func New(opts Options) (*Cache, error) {
	c := &Cache{
		root:       opts.Root,
		defaultTTL: opts.DefaultTTL,
		dirMode:    opts.DirMode,
		fileMode:   opts.FileMode,
		hash:       opts.Hash,
		serializer: opts.Serializer,
		expiry:     opts.Expiry,
		fs:         opts.Fs,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if c.root == "" {
		c.root = filepath.Join(os.TempDir(), DefaultDirName)
	}
	if c.defaultTTL == 0 {
		c.defaultTTL = DefaultLifetime
	}
	if c.defaultTTL < 0 {
		return nil, fmt.Errorf("default ttl must be positive, got %s", c.defaultTTL)
	}
	if c.dirMode == 0 {
		c.dirMode = DefaultDirMode
	}
	if c.fileMode == 0 {
		c.fileMode = DefaultFileMode
	}
	if c.hash == nil {
		c.hash = SHA1Hex
	}
	if c.serializer == nil {
		c.serializer = JSONSerializer{}
	}
	if c.expiry == nil {
		c.expiry = MtimeExpiry{}
	}
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.SetOutput(io.Discard)
	}
	if c.now == nil {
		c.now = time.Now
	}

	if _, isOS := c.fs.(*afero.OsFs); isOS {
		abs, err := filepath.Abs(c.root)
		if err != nil {
			return nil, fmt.Errorf("resolve cache root: %w", err)
		}
		c.root = abs
	}
	if err := c.fs.MkdirAll(c.root, c.dirMode); err != nil {
		return nil, ioErr("mkdir", c.root, err)
	}
	return c, nil
}

// Root returns the cache directory.
func (c *Cache) Root() string { return c.root }

// DefaultTTL returns the lifetime applied when Set receives NoTTL.
func (c *Cache) DefaultTTL() time.Duration { return c.defaultTTL }

// Has reports whether key has a live entry. An entry that exists but has
// expired is deleted before Has returns false; this is the only place lazy
// eviction happens.
func (c *Cache) Has(key string) (bool, error) {
	path, err := c.Path(key)
	if err != nil {
		return false, err
	}

	present, expiresAt, err := c.inspect(path)
	if err != nil || !present {
		return false, err
	}
	if !IsExpired(expiresAt, c.now()) {
		return true, nil
	}

	// 淘汰前在条目锁内重新检查，避免删掉并发 Set 刚写入的新条目。
	unlock := c.locks.lock(filepath.Base(path))
	defer unlock()

	present, expiresAt, err = c.inspect(path)
	if err != nil || !present {
		return false, err
	}
	if !IsExpired(expiresAt, c.now()) {
		return true, nil
	}
	if _, err := c.removeLocked(key, path); err != nil {
		return false, err
	}
	c.logger.WithFields(logrus.Fields{
		"action":     "cache_evict_expired",
		"key":        key,
		"expires_at": expiresAt,
	}).Debug("expired entry removed")
	return false, nil
}

// inspect reports whether an entry file exists at path and when it expires.
func (c *Cache) inspect(path string) (bool, time.Time, error) {
	info, err := c.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, time.Time{}, nil
		}
		return false, time.Time{}, ioErr("stat", path, err)
	}
	if info.IsDir() {
		return false, time.Time{}, nil
	}

	expiresAt, err := c.expiry.Load(c.fs, path, info)
	if err != nil {
		return false, time.Time{}, ioErr("load expiry", path, err)
	}
	return true, expiresAt, nil
}

// Get returns the value stored under key, or def when the entry is missing or
// expired. Invalid keys, I/O failures and corrupt payloads are returned as
// errors alongside def.
func (c *Cache) Get(key string, def any) (any, error) {
	var value any
	found, err := c.GetInto(key, &value)
	if err != nil || !found {
		return def, err
	}
	return value, nil
}

// GetInto decodes the live entry for key into dst. It returns false with a nil
// error when the entry is missing or expired.
func (c *Cache) GetInto(key string, dst any) (bool, error) {
	live, err := c.Has(key)
	if err != nil || !live {
		return false, err
	}
	path, err := c.Path(key)
	if err != nil {
		return false, err
	}

	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		// 与并发的 Delete/Clear 竞争时，文件可能在 Has 之后消失。
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, ioErr("read", path, err)
	}
	if err := c.serializer.Decode(data, dst); err != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "cache_corrupt_entry",
			"key":    key,
			"path":   path,
		}).WithError(err).Warn("cache entry cannot be decoded")
		return false, &CorruptEntryError{Key: key, Path: path, Err: err}
	}
	return true, nil
}

// Set serializes value and stores it under key, overwriting any previous
// entry. Missing root and shard directories are created on demand.
func (c *Cache) Set(key string, value any, ttl TTL) error {
	path, err := c.Path(key)
	if err != nil {
		return err
	}
	payload, err := c.serializer.Encode(value)
	if err != nil {
		return err
	}

	unlock := c.locks.lock(filepath.Base(path))
	defer unlock()

	expiresAt := ttl.ExpiresAt(c.now(), c.defaultTTL)
	if err := c.writeEntry(path, payload, expiresAt); err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"action":     "cache_set",
		"key":        key,
		"ttl":        ttl.String(),
		"expires_at": expiresAt,
		"size_bytes": len(payload),
	}).Debug("cache entry written")
	return nil
}

// Delete removes the entry for key. It reports whether a file was removed; a
// missing entry is not an error.
func (c *Cache) Delete(key string) (bool, error) {
	path, err := c.Path(key)
	if err != nil {
		return false, err
	}
	removed, err := c.remove(key, path)
	if err != nil {
		return false, err
	}
	if removed {
		c.logger.WithFields(logrus.Fields{
			"action": "cache_delete",
			"key":    key,
		}).Debug("cache entry deleted")
	}
	return removed, nil
}

func (c *Cache) remove(key, path string) (bool, error) {
	unlock := c.locks.lock(filepath.Base(path))
	defer unlock()
	return c.removeLocked(key, path)
}

// removeLocked expects the caller to hold the entry lock for path.
func (c *Cache) removeLocked(key, path string) (bool, error) {
	removed := true
	if err := c.fs.Remove(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, ioErr("remove", path, err)
		}
		removed = false
	}
	if err := c.expiry.Discard(c.fs, path); err != nil {
		return removed, ioErr("discard expiry", path, fmt.Errorf("key %q: %w", key, err))
	}
	return removed, nil
}

// GetMultiple runs Get for every key independently. Keys that miss, expire or
// fail map to def; failures are combined into the returned error and never
// stop the remaining keys from being read.
func (c *Cache) GetMultiple(keys []string, def any) (map[string]any, error) {
	values := make(map[string]any, len(keys))
	var errs error
	for _, key := range keys {
		value, err := c.Get(key, def)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("get %q: %w", key, err))
		}
		values[key] = value
	}
	return values, errs
}

// SetMultiple writes every pair with the same TTL. It returns true only when
// every write succeeded; a failing key does not prevent the others from being
// attempted.
func (c *Cache) SetMultiple(values map[string]any, ttl TTL) (bool, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs error
	for _, key := range keys {
		if err := c.Set(key, values[key], ttl); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("set %q: %w", key, err))
		}
	}
	return errs == nil, errs
}

// DeleteMultiple deletes every key. It returns true only when every key had an
// entry that was removed.
func (c *Cache) DeleteMultiple(keys []string) (bool, error) {
	all := true
	var errs error
	for _, key := range keys {
		removed, err := c.Delete(key)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %q: %w", key, err))
		}
		all = all && removed
	}
	return all && errs == nil, errs
}
