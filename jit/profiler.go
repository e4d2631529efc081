package jit

import (
	"sync"
	"time"
)

// BlockProfiler tracks how often each cached translation unit (keyed
// by its LocationDescriptor hash) is dispatched, adapted from the
// teacher's ExecutionProfiler — the execution-count/hot-threshold
// shape transfers directly from "is this bytecode function called
// often enough to JIT" to "how often is this guest block dispatched".
// CodeCache eviction does not consult these counts; it evicts the
// oldest-created entry.
type BlockProfiler struct {
	blocks map[uint64]*BlockProfile
	mu     sync.RWMutex
}

// BlockProfile holds dispatch statistics for a single cached block.
type BlockProfile struct {
	Hash            uint64
	DispatchCount   int64
	TotalTime       time.Duration
	AverageTime     time.Duration
	LastDispatch    time.Time
	FirstDispatch   time.Time
	IsHot           bool
}

// NewBlockProfiler creates an empty profiler.
func NewBlockProfiler() *BlockProfiler {
	return &BlockProfiler{blocks: make(map[uint64]*BlockProfile)}
}

// RecordDispatch records one dispatch of the block identified by hash.
func (p *BlockProfiler) RecordDispatch(hash uint64, dispatchTime time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile, exists := p.blocks[hash]
	if !exists {
		profile = &BlockProfile{Hash: hash, FirstDispatch: time.Now()}
		p.blocks[hash] = profile
	}

	profile.DispatchCount++
	profile.TotalTime += dispatchTime
	profile.AverageTime = time.Duration(int64(profile.TotalTime) / profile.DispatchCount)
	profile.LastDispatch = time.Now()

	if profile.DispatchCount >= DefaultHotThreshold {
		profile.IsHot = true
	}
}

// GetDispatchCount returns how many times hash has been dispatched.
func (p *BlockProfiler) GetDispatchCount(hash uint64) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if profile, exists := p.blocks[hash]; exists {
		return profile.DispatchCount
	}
	return 0
}

// GetProfile returns a copy of hash's profile, or nil if never
// dispatched.
func (p *BlockProfiler) GetProfile(hash uint64) *BlockProfile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if profile, exists := p.blocks[hash]; exists {
		cp := *profile
		return &cp
	}
	return nil
}

// Forget drops hash's profile so a later re-translation starts a fresh
// dispatch count. Cache eviction and InvalidateCacheRange do not call it.
func (p *BlockProfiler) Forget(hash uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.blocks, hash)
}

// Reset clears all profiling data.
func (p *BlockProfiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blocks = make(map[uint64]*BlockProfile)
}

// ProfilerStats holds overall profiling statistics.
type ProfilerStats struct {
	TrackedBlocks         int
	HotBlocks             int
	TotalDispatches       int64
	TotalTime             time.Duration
	AverageDispatchTime   time.Duration
}

// GetStats summarizes the profiler's current state.
func (p *BlockProfiler) GetStats() ProfilerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := ProfilerStats{TrackedBlocks: len(p.blocks)}
	for _, profile := range p.blocks {
		stats.TotalDispatches += profile.DispatchCount
		stats.TotalTime += profile.TotalTime
		if profile.IsHot {
			stats.HotBlocks++
		}
	}
	if stats.TotalDispatches > 0 {
		stats.AverageDispatchTime = time.Duration(int64(stats.TotalTime) / stats.TotalDispatches)
	}
	return stats
}
