package engine

import (
	gocache "github.com/patrickmn/go-cache"
)

// Cache maps absolute template paths to compiled templates. Entries never
// expire; they leave only through Delete or Flush. Concurrent writers to the
// same key race and the last write wins.
type Cache struct {
	store *gocache.Cache
}

// NewCache creates an empty cache without a cleanup janitor.
func NewCache() *Cache {
	return &Cache{store: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns the compiled template stored for path.
func (c *Cache) Get(path string) (Template, bool) {
	value, found := c.store.Get(path)
	if !found {
		return nil, false
	}
	tpl, ok := value.(Template)
	return tpl, ok
}

// Set stores tpl under path.
func (c *Cache) Set(path string, tpl Template) {
	c.store.Set(path, tpl, gocache.NoExpiration)
}

// Delete removes path and reports whether an entry existed.
func (c *Cache) Delete(path string) bool {
	if _, found := c.store.Get(path); !found {
		return false
	}
	c.store.Delete(path)
	return true
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// Flush removes every entry.
func (c *Cache) Flush() {
	c.store.Flush()
}
