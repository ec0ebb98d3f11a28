// Package trace reads memory access traces and provides hooks that record the
// way caches handle them.
package trace

import (
	"log"
	"sync"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/sim"
)

const (
	accessTableName = "cache_accesses"
	statsTableName  = "cache_stats"
)

// accessEntry represents a cache access in the database
type accessEntry struct {
	ID         string `json:"id"`
	Location   string `json:"location"`
	What       string `json:"what"`
	Address    uint64 `json:"address"`
	SetID      int    `json:"set_id"`
	WayID      int    `json:"way_id"`
	Tag        uint64 `json:"tag"`
	Hit        bool   `json:"hit"`
	Evicted    bool   `json:"evicted"`
	Writeback  bool   `json:"writeback"`
	EvictedTag uint64 `json:"evicted_tag"`
}

// statsEntry represents the final counters of a cache in the database
type statsEntry struct {
	Location      string  `json:"location"`
	NumSets       int     `json:"num_sets"`
	NumWays       int     `json:"num_ways"`
	ByteSize      uint64  `json:"byte_size"`
	TotalAccesses uint64  `json:"total_accesses"`
	Reads         uint64  `json:"reads"`
	Writes        uint64  `json:"writes"`
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Evictions     uint64  `json:"evictions"`
	Writebacks    uint64  `json:"writebacks"`
	HitRatio      float64 `json:"hit_ratio"`
	MissRatio     float64 `json:"miss_ratio"`
}

func locationOf(ctx sim.HookCtx) string {
	if n, ok := ctx.Domain.(sim.Named); ok {
		return n.Name()
	}

	return ""
}

func accessResultOf(ctx sim.HookCtx) (cache.AccessResult, bool) {
	if ctx.Pos != cache.HookPosAccess {
		return cache.AccessResult{}, false
	}

	result, ok := ctx.Detail.(cache.AccessResult)

	return result, ok
}

func outcomeOf(result cache.AccessResult) string {
	switch {
	case result.Hit:
		return "hit"
	case result.Writeback:
		return "miss-writeback"
	case result.Evicted:
		return "miss-evict"
	default:
		return "miss"
	}
}

// A tracer is a hook that logs every access handled by a cache.
type tracer struct {
	logger *log.Logger
}

// NewTracer creates a hook that writes one line per cache access to logger.
func NewTracer(logger *log.Logger) sim.Hook {
	return &tracer{logger: logger}
}

// Func logs the access.
func (t *tracer) Func(ctx sim.HookCtx) {
	result, ok := accessResultOf(ctx)
	if !ok {
		return
	}

	t.logger.Printf("%s, %s, %s, 0x%x, %d, %d, %s\n",
		locationOf(ctx),
		result.Req.ID,
		result.Req.Kind,
		result.Req.Address,
		result.SetID,
		result.WayID,
		outcomeOf(result),
	)
}

// DBTracer is a hook that records every access handled by a cache into a
// data recorder. It can be shared by caches that run in parallel.
type DBTracer struct {
	lock         sync.Mutex
	dataRecorder datarecording.DataRecorder
}

// NewDBTracer creates a new database-based tracer.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	t := &DBTracer{
		dataRecorder: dataRecorder,
	}

	t.dataRecorder.CreateTable(accessTableName, accessEntry{})
	t.dataRecorder.CreateTable(statsTableName, statsEntry{})

	return t
}

// Func records the access.
func (t *DBTracer) Func(ctx sim.HookCtx) {
	result, ok := accessResultOf(ctx)
	if !ok {
		return
	}

	entry := accessEntry{
		ID:         result.Req.ID,
		Location:   locationOf(ctx),
		What:       result.Req.Kind.String(),
		Address:    result.Req.Address,
		SetID:      result.SetID,
		WayID:      result.WayID,
		Tag:        result.Tag,
		Hit:        result.Hit,
		Evicted:    result.Evicted,
		Writeback:  result.Writeback,
		EvictedTag: result.EvictedTag,
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.dataRecorder.InsertData(accessTableName, entry)
}

// RecordStats records the current counters of c.
func (t *DBTracer) RecordStats(c *cache.Cache) {
	snapshot := c.Stats().Snapshot()

	entry := statsEntry{
		Location:      c.Name(),
		NumSets:       c.NumSets(),
		NumWays:       c.NumWays(),
		ByteSize:      c.ByteSize(),
		TotalAccesses: snapshot.TotalAccesses,
		Reads:         snapshot.Reads,
		Writes:        snapshot.Writes,
		Hits:          snapshot.Hits,
		Misses:        snapshot.Misses,
		Evictions:     snapshot.Evictions,
		Writebacks:    snapshot.Writebacks,
		HitRatio:      snapshot.HitRatio(),
		MissRatio:     snapshot.MissRatio(),
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.dataRecorder.InsertData(statsTableName, entry)
}

// Flush writes all buffered entries to the data recorder's storage.
func (t *DBTracer) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.dataRecorder.Flush()
}
