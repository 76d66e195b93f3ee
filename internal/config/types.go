package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"8760h" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		parsed, err := secondsDuration(intVal)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// maxDurationSeconds 是 time.Duration 能容纳的最大整秒数。
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// secondsDuration 将整秒数转换为 Duration，超出 time.Duration 范围时报错而不是回绕。
func secondsDuration(n int64) (Duration, error) {
	if n > maxDurationSeconds || n < -maxDurationSeconds {
		return 0, fmt.Errorf("duration out of range: %d seconds", n)
	}
	return Duration(time.Duration(n) * time.Second), nil
}

func floatSecondsDuration(f float64) (Duration, error) {
	if math.IsNaN(f) || math.Abs(f) > float64(maxDurationSeconds) {
		return 0, fmt.Errorf("duration out of range: %v seconds", f)
	}
	return Duration(time.Duration(f * float64(time.Second))), nil
}

// FileMode 接受 "0775"/"0o775" 形式的八进制字符串或整数。
type FileMode os.FileMode

// UnmarshalText parses an octal permission string.
func (m *FileMode) UnmarshalText(text []byte) error {
	parsed, err := parseMode(string(text))
	if err != nil {
		return err
	}
	*m = FileMode(parsed)
	return nil
}

// Perm 返回 os.FileMode 形式的权限位。
func (m FileMode) Perm() os.FileMode {
	return os.FileMode(m).Perm()
}

func parseMode(raw string) (os.FileMode, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0o"), "0O")
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode: %s", raw)
	}
	if v > 0o777 {
		return 0, fmt.Errorf("file mode out of range: %s", raw)
	}
	return os.FileMode(v), nil
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述进程级行为：HTTP 端口与日志输出。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
}

// CacheConfig 对应 [Cache] 段，决定缓存根目录、默认 TTL 与磁盘策略。
type CacheConfig struct {
	Root       string   `mapstructure:"Root"`
	DefaultTTL Duration `mapstructure:"DefaultTTL"`
	DirMode    FileMode `mapstructure:"DirMode"`
	FileMode   FileMode `mapstructure:"FileMode"`
	Expiry     string   `mapstructure:"Expiry"`
	Hash       string   `mapstructure:"Hash"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Cache  CacheConfig  `mapstructure:"Cache"`
}
