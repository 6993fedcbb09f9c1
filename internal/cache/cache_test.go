package cache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDependsOnEveryParam(t *testing.T) {
	a := NewKey("ingest").Param("region", "LIMA").Param("year", 2022).Key()
	b := NewKey("ingest").Param("region", "LIMA").Param("year", 2023).Key()
	c := NewKey("ingest").Param("region", "LIMA").Param("year", 2022).Key()
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)

	m1 := NewKey("x").Params(map[string]any{"a": 1, "b": 2}).Key()
	m2 := NewKey("x").Param("a", 1).Param("b", 2).Key()
	assert.Equal(t, m1, m2)
	assert.NotEqual(t, m1, NewKey("y").Params(map[string]any{"a": 1, "b": 2}).Key())
}

func TestKeyTracksFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.csv")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))
	k1 := NewKey("ingest").Source(path).Key()
	require.NoError(t, os.WriteFile(path, []byte("ab"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))
	k2 := NewKey("ingest").Source(path).Key()
	assert.NotEqual(t, k1, k2)
}

func TestCacheOps(t *testing.T) {
	c := New[int]()
	k := NewKey("k").Key()
	_, ok := c.Get(k)
	assert.False(t, ok)

	calls := 0
	compute := func() (int, error) { calls++; return 42, nil }
	v, hit, err := c.GetOrCompute(k, compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.False(t, hit)
	v, hit, err = c.GetOrCompute(k, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	_, _, err = c.GetOrCompute(NewKey("bad").Key(), func() (int, error) { return 0, errors.New("boom") })
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len(), "errors are not cached")

	c.Put(NewKey("other").Key(), 1)
	c.Invalidate(k)
	assert.Equal(t, 1, c.Len())
	c.Invalidate()
	assert.Equal(t, 0, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 3, misses)
}

func TestCacheConcurrent(t *testing.T) {
	c := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := NewKey("n").Param("i", i%4).Key()
			c.Put(k, i)
			c.Get(k)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, c.Len())
}
