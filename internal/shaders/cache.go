package shaders

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// maxCached bounds the module cache. The benchmark compiles seven modules;
// other group sizes or stray sources only add a few more.
const maxCached = 64

type cacheKey struct {
	label  string
	stage  gputypes.ShaderStage
	entry  string
	source string
}

// moduleCache holds compiled modules. When full, the oldest insertion is
// dropped.
type moduleCache struct {
	mu      sync.Mutex
	entries map[cacheKey]*Module
	order   []cacheKey

	hits   atomic.Uint64
	misses atomic.Uint64
}

var modules = &moduleCache{entries: make(map[cacheKey]*Module)}

func (c *moduleCache) get(k cacheKey) (*Module, bool) {
	c.mu.Lock()
	m, ok := c.entries[k]
	c.mu.Unlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return m, ok
}

func (c *moduleCache) set(k cacheKey, m *Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[k]; ok {
		return
	}
	if len(c.order) >= maxCached {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[k] = m
	c.order = append(c.order, k)
}

// CacheStats reports compile cache hits and misses since process start.
func CacheStats() (hits, misses uint64) {
	return modules.hits.Load(), modules.misses.Load()
}
