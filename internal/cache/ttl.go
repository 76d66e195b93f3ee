package cache

import (
	"fmt"
	"math"
	"time"
)

// DefaultLifetime 是 Options.DefaultTTL 为零时采用的默认存活期。
const DefaultLifetime = 15 * time.Second

// TTL describes how long a written entry stays live. The zero value (NoTTL)
// defers to the cache's configured default lifetime.
type TTL struct {
	d   time.Duration
	set bool
}

// NoTTL selects Options.DefaultTTL.
var NoTTL TTL

// 整秒 TTL 的可表示范围，超出部分按边界截断，避免 time.Duration 溢出回绕。
const (
	maxSeconds = math.MaxInt64 / int64(time.Second)
	minSeconds = math.MinInt64 / int64(time.Second)
)

// Seconds 以整秒表示 TTL；n <= 0 时写入后立即视为过期。
func Seconds(n int64) TTL {
	return TTL{d: time.Duration(clampSeconds(n)) * time.Second, set: true}
}

func clampSeconds(n int64) int64 {
	switch {
	case n > maxSeconds:
		return maxSeconds
	case n < minSeconds:
		return minSeconds
	default:
		return n
	}
}

// For 以任意时长表示 TTL；d <= 0 同样视为已过期。
func For(d time.Duration) TTL {
	return TTL{d: d, set: true}
}

// IsSet reports whether the TTL overrides the default lifetime.
func (t TTL) IsSet() bool { return t.set }

// Duration returns the explicit lifetime, or def when the TTL is unset.
func (t TTL) Duration(def time.Duration) time.Duration {
	if !t.set {
		return def
	}
	return t.d
}

// ExpiresAt encodes the TTL into the absolute instant persisted for the entry.
func (t TTL) ExpiresAt(now time.Time, def time.Duration) time.Time {
	return now.Add(t.Duration(def))
}

func (t TTL) String() string {
	if !t.set {
		return "default"
	}
	return fmt.Sprint(t.d)
}

// IsExpired 判断条目是否已失效：到期时刻早于或等于 now 即为过期。
func IsExpired(expiresAt, now time.Time) bool {
	return !expiresAt.After(now)
}
