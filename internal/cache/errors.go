package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey 表示 key 含有禁止字符或为空，所有带 key 的操作在 I/O 之前返回。
	ErrInvalidKey = errors.New("invalid cache key")
	// ErrCorruptEntry 表示缓存文件存在但无法解码为合法数据。
	ErrCorruptEntry = errors.New("corrupt cache entry")
	// ErrIO 覆盖除“文件不存在”以外的目录/文件读写删除失败。
	ErrIO = errors.New("cache i/o failure")
	// ErrUnsupportedValue 表示值无法序列化（func、chan、循环引用等）。
	ErrUnsupportedValue = errors.New("unsupported cache value")
)

// InvalidKeyError 记录被拒绝的 key 以及命中的首个禁止字符。
type InvalidKeyError struct {
	Key  string
	Char rune
}

func (e *InvalidKeyError) Error() string {
	if e.Char == 0 {
		return "cache key must not be empty"
	}
	return fmt.Sprintf("cache key %q contains forbidden character %q", e.Key, e.Char)
}

func (e *InvalidKeyError) Is(target error) bool { return target == ErrInvalidKey }

// CorruptEntryError wraps a decode failure for a live entry.
type CorruptEntryError struct {
	Key  string
	Path string
	Err  error
}

func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("cache entry %q (%s) is corrupt: %v", e.Key, e.Path, e.Err)
}

func (e *CorruptEntryError) Is(target error) bool { return target == ErrCorruptEntry }

func (e *CorruptEntryError) Unwrap() error { return e.Err }

// IOError wraps a filesystem failure with the operation that triggered it.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Is(target error) bool { return target == ErrIO }

func (e *IOError) Unwrap() error { return e.Err }

func ioErr(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
