// Package cache provides a trace-driven model of a set-associative cache.
package cache

import (
	"fmt"
	"sync"

	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/mem/cache/stats"
	"github.com/sarchlab/cachesim/mem/mem"
	"github.com/sarchlab/cachesim/sim"
)

// HookPosAccess marks that a cache has finished handling an access. The hook
// item is the *mem.AccessReq and the detail is the AccessResult.
var HookPosAccess = &sim.HookPos{Name: "CacheAccess"}

// AccessResult describes how the cache handled one request.
type AccessResult struct {
	Req        *mem.AccessReq
	SetID      int
	WayID      int
	Tag        uint64
	Hit        bool
	Evicted    bool
	Writeback  bool
	EvictedTag uint64
}

// BlockState is the externally visible state of one way of a set.
type BlockState struct {
	WayID  int    `json:"way_id"`
	Tag    uint64 `json:"tag"`
	Valid  bool   `json:"valid"`
	Dirty  bool   `json:"dirty"`
	Recent bool   `json:"recent"`
}

// Cache is a set-associative cache that replaces blocks with the recency-bit
// approximation of LRU. It only tracks tags; no data is stored.
type Cache struct {
	*sim.HookableBase

	name     string
	byteSize uint64
	numWays  int
	decoder  AddressDecoder

	lock  sync.Mutex
	sets  []*tagging.Set
	stats *stats.Statistics
}

// Name returns the name of the cache.
func (c *Cache) Name() string {
	return c.name
}

// ByteSize returns the capacity of the cache.
func (c *Cache) ByteSize() uint64 {
	return c.byteSize
}

// NumSets returns the number of sets.
func (c *Cache) NumSets() int {
	return len(c.sets)
}

// NumWays returns the associativity.
func (c *Cache) NumWays() int {
	return c.numWays
}

// Decoder returns the address decoder of the cache.
func (c *Cache) Decoder() AddressDecoder {
	return c.decoder
}

// Stats returns the counters of the cache.
func (c *Cache) Stats() *stats.Statistics {
	return c.stats
}

// Access sends one request through the cache.
func (c *Cache) Access(req *mem.AccessReq) AccessResult {
	tag, setID, _ := c.decoder.Decode(req.Address)

	c.lock.Lock()
	c.stats.AddAccess()
	outcome := c.sets[setID].Access(tag, req.IsWrite(), c.stats)
	c.lock.Unlock()

	result := AccessResult{
		Req:        req,
		SetID:      setID,
		WayID:      outcome.WayID,
		Tag:        tag,
		Hit:        outcome.Hit,
		Evicted:    outcome.Evicted,
		Writeback:  outcome.Writeback,
		EvictedTag: outcome.EvictedTag,
	}

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosAccess,
			Item:   req,
			Detail: result,
		})
	}

	return result
}

// SetState returns a copy of the ways of the set with the given index.
func (c *Cache) SetState(setID int) ([]BlockState, error) {
	if setID < 0 || setID >= len(c.sets) {
		return nil, fmt.Errorf("set %d out of range [0, %d)",
			setID, len(c.sets))
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	blocks := c.sets[setID].Blocks
	state := make([]BlockState, len(blocks))

	for i, block := range blocks {
		state[i] = BlockState{
			WayID:  block.WayID,
			Tag:    block.Tag,
			Valid:  block.IsValid,
			Dirty:  block.IsDirty,
			Recent: block.IsRecent,
		}
	}

	return state, nil
}
