package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLCacheHitWithinTTL(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 42, time.Minute)

	got, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 42, got)
}

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewTTLCache[string, string]().(*ttlCache[string, string])
	c.now = func() time.Time { return now }

	c.Set("k", "v", 5*time.Minute)

	_, ok := c.Get("k")
	require.True(t, ok)

	now = now.Add(5*time.Minute + time.Second)
	_, ok = c.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestTTLCacheZeroTTLNotStored(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, 0)

	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestKeyNormalization(t *testing.T) {
	require.Equal(t, "tenant|42|dashboard", Key(" Tenant ", "42", "", "Dashboard"))
}
