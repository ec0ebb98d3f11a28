// Package tagging implements the state machine of a single cache set.
package tagging

// A Block of a cache is the information that is associated with a cache line
type Block struct {
	Tag      uint64
	WayID    int
	IsValid  bool
	IsDirty  bool
	IsRecent bool
}

// A StatsRecorder receives the counter updates produced by accessing a set.
type StatsRecorder interface {
	AddRead()
	AddWrite()
	AddHit()
	AddMiss()
	AddEviction()
	AddWriteback()
}

// Outcome describes what a single access did to a set.
type Outcome struct {
	WayID      int
	Hit        bool
	Evicted    bool
	Writeback  bool
	EvictedTag uint64
}

// A Set is a list of blocks where a certain piece memory can be stored at.
type Set struct {
	Blocks []Block

	victimFinder VictimFinder
}

// NewSet creates an empty set with numWays ways. If victimFinder is nil, the
// set uses a RecencyBitVictimFinder.
func NewSet(numWays int, victimFinder VictimFinder) *Set {
	if numWays <= 0 {
		panic("a set must have at least one way")
	}

	if victimFinder == nil {
		victimFinder = NewRecencyBitVictimFinder()
	}

	s := &Set{
		Blocks:       make([]Block, numWays),
		victimFinder: victimFinder,
	}

	s.Reset()

	return s
}

// NumWays returns the associativity of the set.
func (s *Set) NumWays() int {
	return len(s.Blocks)
}

// Reset clears the valid, dirty, and recency bits of every way.
func (s *Set) Reset() {
	for i := range s.Blocks {
		s.Blocks[i] = Block{WayID: i}
	}
}

// Lookup searches the set for a valid block holding tag. Finding it counts as
// a hit, otherwise as a miss. A way that stores the tag but is not valid never
// hits.
func (s *Set) Lookup(tag uint64, stats StatsRecorder) (wayID int, found bool) {
	for i := range s.Blocks {
		block := &s.Blocks[i]
		if block.Tag == tag && block.IsValid {
			stats.AddHit()
			return i, true
		}
	}

	stats.AddMiss()

	return -1, false
}

// FindFreeWay returns the first way that does not hold a valid block.
func (s *Set) FindFreeWay() (wayID int, found bool) {
	for i := range s.Blocks {
		if !s.Blocks[i].IsValid {
			return i, true
		}
	}

	return -1, false
}

// SelectVictim picks the way to evict when the set is full and records the
// eviction. A dirty victim also counts as a writeback.
func (s *Set) SelectVictim(stats StatsRecorder) int {
	wayID := s.victimFinder.FindVictim(s)

	if s.Blocks[wayID].IsDirty {
		stats.AddWriteback()
	}

	stats.AddEviction()

	return wayID
}

// Access handles a read or a write of tag. On a hit the block is marked
// recent, and dirty for writes. On a miss the block is installed in a free way
// or, if there is none, in the way chosen by the victim finder. The number of
// total accesses is not counted here; it is the caller's job.
func (s *Set) Access(tag uint64, isWrite bool, stats StatsRecorder) Outcome {
	wayID, hit := s.Lookup(tag, stats)
	if hit {
		return s.handleHit(wayID, isWrite, stats)
	}

	return s.handleMiss(tag, isWrite, stats)
}

func (s *Set) handleHit(wayID int, isWrite bool, stats StatsRecorder) Outcome {
	block := &s.Blocks[wayID]
	block.IsRecent = true

	if isWrite {
		block.IsDirty = true
		stats.AddWrite()
	} else {
		stats.AddRead()
	}

	return Outcome{WayID: wayID, Hit: true}
}

func (s *Set) handleMiss(tag uint64, isWrite bool, stats StatsRecorder) Outcome {
	outcome := Outcome{}

	wayID, found := s.FindFreeWay()
	if !found {
		wayID = s.SelectVictim(stats)
		outcome.Evicted = true
		outcome.Writeback = s.Blocks[wayID].IsDirty
		outcome.EvictedTag = s.Blocks[wayID].Tag
	}

	block := &s.Blocks[wayID]
	block.Tag = tag
	block.IsValid = true
	block.IsRecent = true
	block.IsDirty = isWrite

	if isWrite {
		stats.AddWrite()
	} else {
		stats.AddRead()
	}

	outcome.WayID = wayID

	return outcome
}
