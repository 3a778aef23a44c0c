// Package redirect implements a redirect-following HTTP transport with a
// shared permanent-redirect cache and a bounded hop count.
package redirect

import "sync"

// Cache maps an origin URI to a previously observed permanent-redirect
// target. Entries are overwritten but never removed, and once set are
// trusted without revalidation. Safe for concurrent use by simultaneous
// unrelated requests.
type Cache struct {
	m sync.Map
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{}
}

// Lookup returns the cached target for origin, if any.
func (c *Cache) Lookup(origin string) (string, bool) {
	v, ok := c.m.Load(origin)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Store records or overwrites the mapping origin→target.
func (c *Cache) Store(origin, target string) {
	c.m.Store(origin, target)
}

// Len counts the cached mappings.
func (c *Cache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
