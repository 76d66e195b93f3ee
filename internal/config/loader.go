package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(durationDecodeHook(), fileModeDecodeHook())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyCacheDefaults(&cfg.Cache)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(cfg.Cache.Root)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Cache.Root = absRoot

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("Cache.Root", "")
	v.SetDefault("Cache.DefaultTTL", "15s")
	v.SetDefault("Cache.DirMode", "0775")
	v.SetDefault("Cache.FileMode", "0664")
	v.SetDefault("Cache.Expiry", "mtime")
	v.SetDefault("Cache.Hash", "sha1")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if strings.TrimSpace(g.LogLevel) == "" {
		g.LogLevel = "info"
	}
}

func applyCacheDefaults(c *CacheConfig) {
	if strings.TrimSpace(c.Root) == "" {
		c.Root = filepath.Join(os.TempDir(), "cache")
	}
	if c.DefaultTTL.DurationValue() == 0 {
		c.DefaultTTL = Duration(15 * time.Second)
	}
	if c.DirMode == 0 {
		c.DirMode = FileMode(0o775)
	}
	if c.FileMode == 0 {
		c.FileMode = FileMode(0o664)
	}
	c.Expiry = strings.ToLower(strings.TrimSpace(c.Expiry))
	if c.Expiry == "" {
		c.Expiry = "mtime"
	}
	c.Hash = strings.ToLower(strings.TrimSpace(c.Hash))
	if c.Hash == "" {
		c.Hash = "sha1"
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return floatSecondsDuration(seconds)
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return secondsDuration(int64(v))
		case int64:
			return secondsDuration(v)
		case float64:
			return floatSecondsDuration(v)
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

// fileModeDecodeHook 将字符串按八进制解析；整数（TOML 中可写作 0o775）按原值使用。
func fileModeDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(FileMode(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			mode, err := parseMode(v)
			if err != nil {
				return nil, fmt.Errorf("无法解析权限字段: %w", err)
			}
			return FileMode(mode), nil
		case int:
			return FileMode(v), nil
		case int64:
			return FileMode(v), nil
		case FileMode:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的权限类型: %T", v)
		}
	}
}
