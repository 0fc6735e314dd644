package querycache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_DeterministicAcrossFilterOrdering(t *testing.T) {
	k1 := Key("/docs", "search term", map[string]string{"doc_type": "ARCHITECTURE", "release": "R1"})
	k2 := Key("/docs", "search term", map[string]string{"release": "R1", "doc_type": "ARCHITECTURE"})
	assert.Equal(t, k1, k2)
}

func TestKey_DiffersOnDifferentQuery(t *testing.T) {
	k1 := Key("/docs", "search term", nil)
	k2 := Key("/docs", "other term", nil)
	assert.NotEqual(t, k1, k2)
}

func TestCache_SetThenGet(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("k1", "value1")
	v, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "value1", v)
}

func TestCache_GetMissingKey(t *testing.T) {
	c := New(10, time.Minute)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := New(10, 10*time.Millisecond)
	c.Set("k1", "value1")
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("k1")
	assert.False(t, ok)
}

func TestCache_EvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := New(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_GetRefreshesRecency(t *testing.T) {
	c := New(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most-recently-used
	c.Set("c", 3) // should evict "b", not "a"

	_, ok := c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("k1", "v")
	c.Invalidate("k1")
	_, ok := c.Get("k1")
	assert.False(t, ok)
}

func TestCache_InvalidateAll(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("k1", "v1")
	c.Set("k2", "v2")
	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
}

func TestCache_GetOrFetch_CachesResult(t *testing.T) {
	c := New(10, time.Minute)
	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "fetched", nil
	}

	v1, err := c.GetOrFetch(context.Background(), "k1", fetch)
	require.NoError(t, err)
	v2, err := c.GetOrFetch(context.Background(), "k1", fetch)
	require.NoError(t, err)

	assert.Equal(t, "fetched", v1)
	assert.Equal(t, "fetched", v2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCache_GetOrFetch_CoalescesConcurrentMisses(t *testing.T) {
	c := New(10, time.Minute)
	var calls int32
	start := make(chan struct{})
	fetch := func(ctx context.Context) (interface{}, error) {
		<-start
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return "fetched", nil
	}

	var wg sync.WaitGroup
	results := make([]interface{}, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := c.GetOrFetch(context.Background(), "shared-key", fetch)
			require.NoError(t, err)
			results[idx] = v
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, "fetched", v)
	}
}

func TestMarshalUnmarshalInvalidation_RoundTrips(t *testing.T) {
	data, err := MarshalInvalidation("/docs")
	require.NoError(t, err)
	root, err := UnmarshalInvalidation(data)
	require.NoError(t, err)
	assert.Equal(t, "/docs", root)
}
