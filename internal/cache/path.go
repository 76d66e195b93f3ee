package cache

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// entrySuffix 是所有缓存正文文件的固定后缀。
const entrySuffix = ".cache"

// HashFunc maps a validated key to a lowercase hex digest of at least four characters.
type HashFunc func(key string) string

// SHA1Hex 返回 40 位十六进制摘要，是默认的磁盘布局。
func SHA1Hex(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// SHA256Hex 返回 64 位十六进制摘要。
func SHA256Hex(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// shardPath 以摘要前两位、三四位作为两级目录：
//
//	<root>/<aa>/<bb>/<digest>.cache
func shardPath(root, digest string) string {
	return filepath.Join(root, digest[0:2], digest[2:4], digest+entrySuffix)
}

// Path resolves the file an entry for key lives in. It performs no I/O and
// never creates directories.
func (c *Cache) Path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return shardPath(c.root, c.hash(key)), nil
}

// HashByName 将配置中的名称映射为摘要函数。
func HashByName(name string) (HashFunc, bool) {
	switch name {
	case "", "sha1":
		return SHA1Hex, true
	case "sha256":
		return SHA256Hex, true
	default:
		return nil, false
	}
}
