package cache_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikpaetukgabriel/polynote/internal/cache"
)

func TestLRUPutGet(t *testing.T) {
	t.Parallel()

	lru := cache.NewLRU[int](4)

	lru.Put("a", 1)
	lru.Put("b", 2)

	v, ok := lru.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = lru.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, 2, lru.Len())
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	lru := cache.NewLRU[int](2)

	lru.Put("a", 1)
	lru.Put("b", 2)

	// Touch a so b becomes the eviction victim.
	_, ok := lru.Get("a")
	require.True(t, ok)

	lru.Put("c", 3)

	_, ok = lru.Get("b")
	assert.False(t, ok)

	_, ok = lru.Get("a")
	assert.True(t, ok)

	_, ok = lru.Get("c")
	assert.True(t, ok)

	assert.Equal(t, 2, lru.Len())
}

func TestLRUUpdateExisting(t *testing.T) {
	t.Parallel()

	lru := cache.NewLRU[string](2)

	lru.Put("k", "old")
	lru.Put("k", "new")

	v, ok := lru.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, lru.Len())
}

func TestLRUZeroCapacityDisabled(t *testing.T) {
	t.Parallel()

	lru := cache.NewLRU[int](0)

	lru.Put("a", 1)

	_, ok := lru.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, lru.Len())
}

func TestLRUNilValues(t *testing.T) {
	t.Parallel()

	lru := cache.NewLRU[*int](2)

	lru.Put("nothing", nil)

	v, ok := lru.Get("nothing")
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestLRUStats(t *testing.T) {
	t.Parallel()

	lru := cache.NewLRU[int](2)

	lru.Put("a", 1)
	lru.Get("a")
	lru.Get("a")
	lru.Get("miss")

	hits, misses := lru.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRUConcurrent(t *testing.T) {
	t.Parallel()

	lru := cache.NewLRU[int](8)

	var wg sync.WaitGroup

	for worker := range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 100 {
				key := fmt.Sprintf("k%d", (worker+i)%16)
				lru.Put(key, i)
				lru.Get(key)
			}
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, lru.Len(), 8)
}
