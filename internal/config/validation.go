package config

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var supportedExpiry = map[string]struct{}{
	"mtime":   {},
	"sidecar": {},
}

var supportedHashes = map[string]struct{}{
	"sha1":   {},
	"sha256": {},
}

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "不支持的日志级别: "+g.LogLevel)
	}
	if g.LogMaxSize < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxBackups", "不能为负数")
	}

	cc := c.Cache
	if cc.Root == "" {
		return newFieldError(cacheField("Root"), "不能为空")
	}
	if cc.DefaultTTL.DurationValue() <= 0 {
		return newFieldError(cacheField("DefaultTTL"), "必须大于 0")
	}
	if cc.DirMode > 0o777 || cc.DirMode.Perm()&0o700 != 0o700 {
		return newFieldError(cacheField("DirMode"), "属主必须具备 rwx 权限")
	}
	if cc.FileMode > 0o777 || cc.FileMode.Perm()&0o600 != 0o600 {
		return newFieldError(cacheField("FileMode"), "属主必须具备 rw 权限")
	}
	if _, ok := supportedExpiry[cc.Expiry]; !ok {
		return newFieldError(cacheField("Expiry"), "仅支持 mtime/sidecar")
	}
	if _, ok := supportedHashes[cc.Hash]; !ok {
		return newFieldError(cacheField("Hash"), "仅支持 sha1/sha256")
	}

	return nil
}
