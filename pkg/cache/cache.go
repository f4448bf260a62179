// Package cache provides the in-memory key-value map that serves every read
// of a HurrahDB store.
//
// Values are opaque byte strings, normally the encoded form produced by a
// codec. The cache never interprets them. Keys are unique and the last write
// wins. There is no ordering between entries and no range scan.
//
// Example usage:
//
//	c := cache.New()
//
//	c.Set("user:123", []byte(`{"name":"john"}`))
//	value, exists := c.Get("user:123")
//
//	c.Del("user:123")
//
// All operations are thread-safe and can be called concurrently from multiple goroutines.
// Reads share a read lock; writes take the write lock and block until it is
// available.
package cache

import (
	"sort"
	"sync"
)

// Cache provides thread-safe in-memory storage of encoded values.
//
// Example:
//
//	cache := cache.New()
//
//	cache.Set("session:abc", []byte("user123"))
//	if value, exists := cache.Get("session:abc"); exists {
//		fmt.Printf("Session data: %s\n", value)
//	}
type Cache struct {
	data map[string][]byte // The actual cache storage
	mu   sync.RWMutex      // Protects the data map
}

// New creates an empty Cache.
//
// Returns:
//   - A new Cache instance ready for use
func New() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// NewFrom creates a Cache primed with data, typically the mapping produced
// by replaying an append-only log. The cache takes ownership of the map; the
// caller must not use it afterwards. A nil map yields an empty cache.
func NewFrom(data map[string][]byte) *Cache {
	if data == nil {
		data = make(map[string][]byte)
	}
	return &Cache{data: data}
}

// Get retrieves a value from the cache.
// The returned slice is a copy and may be modified freely.
//
// Example:
//
//	cache.Set("greeting", []byte("Hello, World!"))
//	if value, exists := cache.Get("greeting"); exists {
//		fmt.Printf("Greeting: %s\n", value)
//	}
//
// Parameters:
//   - key: The key to retrieve
//
// Returns:
//   - The stored bytes if found
//   - Boolean indicating if the key exists
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, exists := c.data[key]
	if !exists {
		return nil, false
	}
	return clone(value), true
}

// Set stores a value in the cache, replacing any previous value.
// The cache keeps its own copy of val.
//
// Parameters:
//   - key: The key to store
//   - val: The bytes to store
func (c *Cache) Set(key string, val []byte) {
	v := clone(val)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = v
}

// Del removes a key from the cache.
// Returns true if the key existed and was deleted, false otherwise.
//
// Example:
//
//	cache.Set("temp", []byte("value"))
//	if cache.Del("temp") {
//		fmt.Println("Key deleted successfully")
//	}
func (c *Cache) Del(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.data[key]
	if exists {
		delete(c.data, key)
		return true
	}
	return false
}

// Exists checks if a key exists in the cache.
func (c *Cache) Exists(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, exists := c.data[key]
	return exists
}

// Len returns the number of keys in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}

// Keys returns every key in the cache, sorted.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.data))
	for key := range c.data {
		keys = append(keys, key)
	}
	c.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Stats returns statistics about the current state of the cache.
//
// Example:
//
//	stats := cache.Stats()
//	fmt.Printf("Total keys: %d\n", stats["keys"])
//	fmt.Printf("Value bytes: %d\n", stats["bytes"])
//
// Returns:
//   - Map containing cache statistics:
//   - "keys": total number of keys
//   - "bytes": total size of all keys and values
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	size := 0
	for key, value := range c.data {
		size += len(key) + len(value)
	}

	return map[string]interface{}{
		"keys":  len(c.data),
		"bytes": size,
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
