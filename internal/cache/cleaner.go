package cache

import (
	"errors"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// Clear removes every file and directory under the root, children before
// parents, and finally the root itself. Afterwards the root no longer exists;
// the next Set recreates it. It reports false with a nil error when the root
// was already absent.
//
// Clear is not safe to run concurrently with any other operation on the same
// root, in this process or another. Callers must serialize it themselves.
func (c *Cache) Clear() (bool, error) {
	if _, err := c.fs.Stat(c.root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, ioErr("stat", c.root, err)
	}

	var paths []string
	walkErr := afero.Walk(c.fs, c.root, func(path string, _ os.FileInfo, err error) error {
		if err != nil {
			// 遍历期间被并发删除的条目直接跳过。
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		return false, ioErr("walk", c.root, walkErr)
	}

	// Walk 是先序遍历，倒序即为子节点先于父节点。
	var errs error
	removed := 0
	for i := len(paths) - 1; i >= 0; i-- {
		if err := c.fs.Remove(paths[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = multierr.Append(errs, ioErr("remove", paths[i], err))
			continue
		}
		removed++
	}

	fields := logrus.Fields{
		"action":  "cache_clear",
		"root":    c.root,
		"removed": removed,
	}
	if errs != nil {
		c.logger.WithFields(fields).WithError(errs).Warn("cache clear incomplete")
		return false, errs
	}
	c.logger.WithFields(fields).Debug("cache cleared")
	return true, nil
}
