package cache

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// stagingPattern 是写入过程中临时文件的命名模式，与正文位于同一分片目录。
const stagingPattern = ".tmp-*"

// writeEntry 先写临时文件、盖上到期时间，再 rename 到目标路径；失败时清理临时文件。
func (c *Cache) writeEntry(path string, payload []byte, expiresAt time.Time) error {
	dir := filepath.Dir(path)
	if err := c.fs.MkdirAll(dir, c.dirMode); err != nil {
		return ioErr("mkdir", dir, err)
	}

	tmp, err := afero.TempFile(c.fs, dir, stagingPattern)
	if err != nil {
		return ioErr("create", dir, err)
	}
	tmpName := tmp.Name()

	n, err := tmp.Write(payload)
	if err == nil && n < len(payload) {
		err = io.ErrShortWrite
	}
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = c.fs.Remove(tmpName)
		return ioErr("write", tmpName, err)
	}

	if err := c.fs.Chmod(tmpName, c.fileMode); err != nil {
		_ = c.fs.Remove(tmpName)
		return ioErr("chmod", tmpName, err)
	}
	if err := c.expiry.Stamp(c.fs, path, tmpName, expiresAt); err != nil {
		_ = c.fs.Remove(tmpName)
		return ioErr("stamp", path, err)
	}
	if err := c.fs.Rename(tmpName, path); err != nil {
		_ = c.fs.Remove(tmpName)
		_ = c.expiry.Discard(c.fs, path)
		return ioErr("rename", path, err)
	}
	return nil
}

// writeFileAtomic 将 data 写入同目录临时文件后 rename 到 path，读者只会看到完整内容。
func writeFileAtomic(fsys afero.Fs, path string, data []byte, perm os.FileMode) error {
	tmp, err := afero.TempFile(fsys, filepath.Dir(path), stagingPattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	n, err := tmp.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = fsys.Chmod(tmpName, perm)
	}
	if err == nil {
		err = fsys.Rename(tmpName, path)
	}
	if err != nil {
		_ = fsys.Remove(tmpName)
	}
	return err
}
