// Package stats keeps the access counters of a simulated cache and formats
// the performance report.
package stats

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Statistics holds the counters of one simulated cache. The counters only
// grow. The simulation goroutine is the only writer, but the counters are
// atomic so that monitors can read them while a trace is running.
type Statistics struct {
	totalAccesses atomic.Uint64
	reads         atomic.Uint64
	writes        atomic.Uint64
	hits          atomic.Uint64
	misses        atomic.Uint64
	evictions     atomic.Uint64
	writebacks    atomic.Uint64
}

// New creates a Statistics with all counters at zero.
func New() *Statistics {
	return &Statistics{}
}

// AddAccess counts one access issued to the cache.
func (s *Statistics) AddAccess() { s.totalAccesses.Add(1) }

// AddRead counts one read.
func (s *Statistics) AddRead() { s.reads.Add(1) }

// AddWrite counts one write.
func (s *Statistics) AddWrite() { s.writes.Add(1) }

// AddHit counts one hit.
func (s *Statistics) AddHit() { s.hits.Add(1) }

// AddMiss counts one miss.
func (s *Statistics) AddMiss() { s.misses.Add(1) }

// AddEviction counts one evicted block.
func (s *Statistics) AddEviction() { s.evictions.Add(1) }

// AddWriteback counts one dirty block written back on eviction.
func (s *Statistics) AddWriteback() { s.writebacks.Add(1) }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	TotalAccesses uint64 `json:"total_accesses"`
	Reads         uint64 `json:"reads"`
	Writes        uint64 `json:"writes"`
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Evictions     uint64 `json:"evictions"`
	Writebacks    uint64 `json:"writebacks"`
}

// Snapshot copies the current counter values.
func (s *Statistics) Snapshot() Snapshot {
	return Snapshot{
		TotalAccesses: s.totalAccesses.Load(),
		Reads:         s.reads.Load(),
		Writes:        s.writes.Load(),
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
		Evictions:     s.evictions.Load(),
		Writebacks:    s.writebacks.Load(),
	}
}

// Report writes the performance summary of the counters to w.
func (s *Statistics) Report(w io.Writer) error {
	return s.Snapshot().Report(w)
}

// HitRatio returns hits over total accesses in percent. It returns 0 if no
// access has been made.
func (s Snapshot) HitRatio() float64 {
	return percent(s.Hits, s.TotalAccesses)
}

// MissRatio returns misses over total accesses in percent. It returns 0 if no
// access has been made.
func (s Snapshot) MissRatio() float64 {
	return percent(s.Misses, s.TotalAccesses)
}

func percent(n, total uint64) float64 {
	if total == 0 {
		return 0
	}

	return float64(n) / float64(total) * 100
}

// Report writes the performance summary to w.
func (s Snapshot) Report(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"========== Cache Performance Results ==========\n\n"+
			"Total Cache Accesses: %d\n"+
			"Number of Cache Reads: %d\n"+
			"Number of Cache Writes: %d\n"+
			"Number of Cache Hits: %d\n"+
			"Number of Cache Misses: %d\n"+
			"Cache Hit Ratio: %2.2f%%\n"+
			"Cache Miss Ratio: %2.2f%%\n"+
			"Number of Evictions: %d\n"+
			"Number of Writebacks: %d\n\n"+
			"===============================================\n\n",
		s.TotalAccesses,
		s.Reads,
		s.Writes,
		s.Hits,
		s.Misses,
		s.HitRatio(),
		s.MissRatio(),
		s.Evictions,
		s.Writebacks,
	)

	return err
}
