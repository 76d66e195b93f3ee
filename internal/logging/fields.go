package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/filecache/filecache/internal/config"
)

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// CacheFields 描述缓存实例的磁盘策略，用于启动与清理日志。
func CacheFields(cfg config.CacheConfig) logrus.Fields {
	return logrus.Fields{
		"cache_root":          cfg.Root,
		"default_ttl_seconds": int64(cfg.DefaultTTL.DurationValue().Seconds()),
		"expiry":              cfg.Expiry,
		"hash":                cfg.Hash,
	}
}

// RequestFields 提供请求 ID、方法与 key 字段，供 HTTP 日志复用。
func RequestFields(requestID, method, key string) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"key":        key,
	}
}
