package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheSetGet(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 100})
	defer c.Close()

	c.Set("user_1", "alice")
	value, ok := c.Get("user_1")
	assert.True(t, ok)
	assert.Equal(t, "alice", value)

	_, ok = c.Get("user_2")
	assert.False(t, ok)
}

func TestCacheDelete(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 100})
	defer c.Close()

	c.Set("agent", 42)
	c.Delete("agent")
	_, ok := c.Get("agent")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New(Config{MaxItems: 100})
	defer c.Close()

	c.SetWithTTL("short", "v", 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, ok := c.Get("short")
		return !ok
	}, time.Second, 5*time.Millisecond)
}
