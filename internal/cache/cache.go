// Package cache memoizes expensive pipeline stages (ingestion, boundary
// loading) keyed by source identity and every parameter that changes output.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Key identifies one cached computation.
type Key string

// KeyBuilder accumulates the inputs of a Key.
type KeyBuilder struct {
	parts []string
}

// NewKey starts a key for the named stage.
func NewKey(stage string) *KeyBuilder {
	return &KeyBuilder{parts: []string{"stage=" + stage}}
}

// Source adds the identity of a file: its path plus size and modification
// time, so edits invalidate the entry. URLs and missing files contribute
// only their name.
func (b *KeyBuilder) Source(path string) *KeyBuilder {
	id := "src=" + path
	if st, err := os.Stat(path); err == nil {
		id += fmt.Sprintf("|%d|%d", st.Size(), st.ModTime().UnixNano())
	}
	b.parts = append(b.parts, id)
	return b
}

// Param adds a named parameter.
func (b *KeyBuilder) Param(name string, v any) *KeyBuilder {
	b.parts = append(b.parts, fmt.Sprintf("%s=%v", name, v))
	return b
}

// Params adds a parameter set in sorted order.
func (b *KeyBuilder) Params(m map[string]any) *KeyBuilder {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		b.Param(k, m[k])
	}
	return b
}

// Key hashes the accumulated parts.
func (b *KeyBuilder) Key() Key {
	sum := sha256.Sum256([]byte(strings.Join(b.parts, "\x00")))
	return Key(hex.EncodeToString(sum[:]))
}

// Cache is a concurrency-safe in-memory map of computed values.
type Cache[V any] struct {
	mu   sync.RWMutex
	data map[Key]V
	hits int
	miss int
}

// New returns an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{data: make(map[Key]V)}
}

// Get returns the value for k.
func (c *Cache[V]) Get(k Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[k]
	if ok {
		c.hits++
	} else {
		c.miss++
	}
	return v, ok
}

// Put stores v under k.
func (c *Cache[V]) Put(k Key, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[k] = v
}

// GetOrCompute returns the cached value or computes, stores and returns it.
// Errors are not cached.
func (c *Cache[V]) GetOrCompute(k Key, compute func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(k); ok {
		return v, true, nil
	}
	v, err := compute()
	if err != nil {
		return v, false, err
	}
	c.Put(k, v)
	return v, false, nil
}

// Invalidate drops k, or every entry when no key is given.
func (c *Cache[V]) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(keys) == 0 {
		c.data = make(map[Key]V)
		return
	}
	for _, k := range keys {
		delete(c.data, k)
	}
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Stats returns hit and miss counts.
func (c *Cache[V]) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.miss
}
