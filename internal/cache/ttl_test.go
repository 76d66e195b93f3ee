package cache

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLExpiresAt(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	def := 15 * time.Second

	require.Equal(t, now.Add(def), NoTTL.ExpiresAt(now, def))
	require.Equal(t, now.Add(120*time.Second), Seconds(120).ExpiresAt(now, def))
	require.Equal(t, now.Add(-time.Second), Seconds(-1).ExpiresAt(now, def))
	require.Equal(t, now.Add(6*24*time.Hour), For(6*24*time.Hour).ExpiresAt(now, def))

	require.False(t, NoTTL.IsSet())
	require.True(t, Seconds(0).IsSet())
	require.Equal(t, "default", NoTTL.String())
	require.Equal(t, "2m0s", Seconds(120).String())
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	require.True(t, IsExpired(now.Add(-time.Nanosecond), now))
	require.True(t, IsExpired(now, now))
	require.False(t, IsExpired(now.Add(time.Nanosecond), now))
}

func TestSecondsClampsHugeValues(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	huge := Seconds(10_000_000_000)
	require.Positive(t, huge.Duration(0))
	require.False(t, IsExpired(huge.ExpiresAt(now, 0), now))
	require.Equal(t, huge, Seconds(math.MaxInt64))

	require.Negative(t, Seconds(math.MinInt64).Duration(0))
	require.True(t, IsExpired(Seconds(-10_000_000_000).ExpiresAt(now, 0), now))
}
