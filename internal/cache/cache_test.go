package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("key", []byte("value"), time.Minute))

	data, found := c.Get("key")
	assert.True(t, found)
	assert.Equal(t, []byte("value"), data)

	_, found = c.Get("missing")
	assert.False(t, found)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("key", []byte("value"), -time.Second))

	_, found := c.Get("key")
	assert.False(t, found)
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	c := NewMemoryCache()

	require.NoError(t, c.Set("a", []byte("1"), time.Minute))
	require.NoError(t, c.Set("b", []byte("2"), time.Minute))

	require.NoError(t, c.Delete("a"))
	_, found := c.Get("a")
	assert.False(t, found)

	require.NoError(t, c.Clear())
	_, found = c.Get("b")
	assert.False(t, found)
}

func TestMultiLevelCachePromotesFromSlowLevel(t *testing.T) {
	memory := NewMemoryCache()
	slow := NewMemoryCache()
	c := NewMultiLevelCache(memory, slow, logger.NewTestLogger())

	// Seed only the slow level, as after a process restart.
	require.NoError(t, slow.Set("key", []byte("value"), time.Minute))

	data, found := c.Get("key")
	require.True(t, found)
	assert.Equal(t, []byte("value"), data)

	// The hit is now served from memory too.
	data, found = memory.Get("key")
	assert.True(t, found)
	assert.Equal(t, []byte("value"), data)
}

func TestMultiLevelCacheMemoryOnlyPrefix(t *testing.T) {
	memory := NewMemoryCache()
	slow := NewMemoryCache()
	c := NewMultiLevelCache(memory, slow, logger.NewTestLogger())

	require.NoError(t, c.Set(MemoryOnlyPrefix+"key", []byte("value"), time.Minute))

	_, found := slow.Get("key")
	assert.False(t, found)

	data, found := c.Get(MemoryOnlyPrefix + "key")
	require.True(t, found)
	assert.Equal(t, []byte("value"), data)
}
