package containers

// Cache maps a comparable key to a lazily built value. It is not safe for
// concurrent use; backends only touch their caches from the render thread.
type Cache[K comparable, V any] struct {
	entries map[K]V
	hits    uint64
	misses  uint64
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]V)}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// GetOrCreate returns the cached value for key, calling create on a miss.
// A failed create leaves the cache untouched.
func (c *Cache[K, V]) GetOrCreate(key K, create func(K) (V, error)) (V, error) {
	if v, ok := c.entries[key]; ok {
		c.hits++
		return v, nil
	}
	c.misses++
	v, err := create(key)
	if err != nil {
		var zero V
		return zero, err
	}
	c.entries[key] = v
	return v, nil
}

func (c *Cache[K, V]) Put(key K, value V) {
	c.entries[key] = value
}

func (c *Cache[K, V]) Len() int {
	return len(c.entries)
}

func (c *Cache[K, V]) Stats() (hits, misses uint64) {
	return c.hits, c.misses
}

// RemoveIf drops every entry matching pred, calling destroy on it first.
func (c *Cache[K, V]) RemoveIf(pred func(K, V) bool, destroy func(K, V)) int {
	removed := 0
	for k, v := range c.entries {
		if pred(k, v) {
			if destroy != nil {
				destroy(k, v)
			}
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Clear empties the cache, calling destroy on every entry.
func (c *Cache[K, V]) Clear(destroy func(K, V)) {
	for k, v := range c.entries {
		if destroy != nil {
			destroy(k, v)
		}
	}
	clear(c.entries)
}
