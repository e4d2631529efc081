package jit

import (
	"fmt"
	"sync"
	"time"

	"armjit/ir"
)

// CodeCache maps a guest LocationDescriptor's encoded hash to its
// translated, emitted block, adapted from the teacher's CodeCache
// (map+mutex+size-bounded eviction shape kept, evicting the
// oldest-created entry; the payload changes
// from Rush bytecode's ARM64 native code to a guest block's x86-64
// native code).
type CodeCache struct {
	entries    map[uint64]*CompiledBlock
	mu         sync.RWMutex
	maxEntries int
	size       int64
	maxSize    int64
}

// CompiledBlock is one cached translation unit: its emitted machine
// code location inside a BlockOfCode, the frozen IR it was lowered
// from (kept for Disassemble/debugging), and bookkeeping for eviction.
type CompiledBlock struct {
	Entry        uintptr
	Size         int
	Block        *ir.Block
	Hash         uint64
	CreatedAt    time.Time
	ExecuteCount int64
}

const (
	DefaultHotThreshold = 100
	DefaultMaxCacheEntries = 4096
	DefaultMaxCacheSize    = 64 << 20
)

// NewCodeCache creates a cache with the default entry/size bounds.
func NewCodeCache() *CodeCache {
	return &CodeCache{
		entries:    make(map[uint64]*CompiledBlock),
		maxEntries: DefaultMaxCacheEntries,
		maxSize:    DefaultMaxCacheSize,
	}
}

// Add inserts code under hash, evicting the least-recently-created
// entry first if the cache is full. Eviction never frees the backing
// BlockOfCode memory itself — that arena is reclaimed wholesale by
// ClearCache (spec §4.9: individual block entries are cheap map
// bookkeeping, the executable memory they point into is not
// individually freed).
func (c *CodeCache) Add(hash uint64, code *CompiledBlock) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries || c.size+int64(code.Size) > c.maxSize {
		if err := c.evictOldestLocked(); err != nil {
			return fmt.Errorf("jit: evict cache entries: %w", err)
		}
	}

	c.entries[hash] = code
	c.size += int64(code.Size)
	return nil
}

// Get retrieves hash's compiled block, bumping its execution count.
func (c *CodeCache) Get(hash uint64) *CompiledBlock {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if code, exists := c.entries[hash]; exists {
		code.ExecuteCount++
		return code
	}
	return nil
}

// Has reports whether hash is already cached.
func (c *CodeCache) Has(hash uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.entries[hash]
	return exists
}

// Remove evicts hash's entry.
func (c *CodeCache) Remove(hash uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(hash)
}

func (c *CodeCache) removeLocked(hash uint64) {
	if code, exists := c.entries[hash]; exists {
		c.size -= int64(code.Size)
		delete(c.entries, hash)
	}
}

func (c *CodeCache) evictOldestLocked() error {
	if len(c.entries) == 0 {
		return nil
	}
	var oldestHash uint64
	oldestTime := time.Now()
	for hash, code := range c.entries {
		if code.CreatedAt.Before(oldestTime) {
			oldestTime = code.CreatedAt
			oldestHash = hash
		}
	}
	c.removeLocked(oldestHash)
	return nil
}

// RemoveRange evicts every cached block whose LocationDescriptor PC
// falls in [lowPC, highPC), for InvalidateCacheRange (spec §4.9 "guest
// self-modifying code" note). O(n) in cache size; a production cache
// would keep an interval index, but this module's scale (a handful of
// thousand blocks) makes the linear scan acceptable and keeps the
// eviction path auditable.
func (c *CodeCache) RemoveRange(lowPC, highPC uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for hash, code := range c.entries {
		loc := code.Block.Location()
		if loc.PC >= lowPC && loc.PC < highPC {
			c.removeLocked(hash)
		}
	}
}

// CacheStats summarizes the cache's current occupancy.
type CacheStats struct {
	Entries         int
	MaxEntries      int
	Size            int64
	MaxSize         int64
	TotalExecutions int64
}

// GetStats returns a snapshot of the cache's bookkeeping.
func (c *CodeCache) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var totalExecutions int64
	for _, code := range c.entries {
		totalExecutions += code.ExecuteCount
	}
	return CacheStats{
		Entries:         len(c.entries),
		MaxEntries:      c.maxEntries,
		Size:            c.size,
		MaxSize:         c.maxSize,
		TotalExecutions: totalExecutions,
	}
}

// Clear drops every cached entry. Callers are responsible for
// discarding the BlockOfCode arena that backed them (jit.Jit.ClearCache
// does both together).
func (c *CodeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*CompiledBlock)
	c.size = 0
}
