package cache

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_Basic(t *testing.T) {
	c := NewMemoryCache[string, int]()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3) // replace

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, got)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, 2, c.Len())

	keys := c.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b"}, keys)

	c.Del("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestMemoryCache_DelMissingIsNoop(t *testing.T) {
	c := NewMemoryCache[string, int]()
	c.Del("nope")
	assert.Zero(t, c.Len())
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache[string, int]()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%8)
				c.Set(key, n)
				c.Get(key)
				c.Keys()
				if j%10 == 0 {
					c.Del(key)
				}
			}
		}(i)
	}
	wg.Wait()
}
