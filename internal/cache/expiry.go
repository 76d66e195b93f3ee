package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Expiry 决定条目到期时刻在磁盘上的表示方式，允许替换 mtime 方案而不影响引擎其余部分。
type Expiry interface {
	// Stamp records expiresAt for the entry about to be published at path.
	// staged is the fully written temp file that will be renamed onto path.
	Stamp(fsys afero.Fs, path, staged string, expiresAt time.Time) error

	// Load returns the persisted expiry of the entry at path. info is the
	// result of stating path.
	Load(fsys afero.Fs, path string, info os.FileInfo) (time.Time, error)

	// Discard removes any expiry state kept outside the entry file.
	Discard(fsys afero.Fs, path string) error
}

// MtimeExpiry stores the expiry as the entry file's modification time. This is
// the default on-disk contract: the file carries no header or sidecar.
type MtimeExpiry struct{}

// Stamp sets the staged file's times before the rename so the published entry
// never carries a pre-stamp mtime.
func (MtimeExpiry) Stamp(fsys afero.Fs, _ string, staged string, expiresAt time.Time) error {
	return fsys.Chtimes(staged, expiresAt, expiresAt)
}

func (MtimeExpiry) Load(_ afero.Fs, _ string, info os.FileInfo) (time.Time, error) {
	return info.ModTime(), nil
}

func (MtimeExpiry) Discard(afero.Fs, string) error { return nil }

// sidecarSuffix 追加在条目文件名后，用于 SidecarExpiry。
const sidecarSuffix = ".expires"

// SidecarExpiry keeps the expiry as Unix nanoseconds in <entry>.expires next to
// the entry, leaving the entry's mtime untouched. An entry whose sidecar is
// missing is reported as already expired.
type SidecarExpiry struct{}

// Stamp publishes the sidecar through a staged rename so Load never observes a
// partially written value.
func (SidecarExpiry) Stamp(fsys afero.Fs, path string, _ string, expiresAt time.Time) error {
	data := strconv.FormatInt(expiresAt.UnixNano(), 10)
	return writeFileAtomic(fsys, path+sidecarSuffix, []byte(data), 0o644)
}

func (SidecarExpiry) Load(fsys afero.Fs, path string, _ os.FileInfo) (time.Time, error) {
	raw, err := afero.ReadFile(fsys, path+sidecarSuffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	nanos, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expiry sidecar: %w", err)
	}
	return time.Unix(0, nanos), nil
}

func (SidecarExpiry) Discard(fsys afero.Fs, path string) error {
	if err := fsys.Remove(path + sidecarSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ExpiryByName 将配置中的名称映射为具体策略。
func ExpiryByName(name string) (Expiry, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mtime":
		return MtimeExpiry{}, true
	case "sidecar":
		return SidecarExpiry{}, true
	default:
		return nil, false
	}
}
