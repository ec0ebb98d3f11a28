package tagging

// A VictimFinder decides with block should be evicted
type VictimFinder interface {
	// FindVictim returns the way to evict. It is only called when every way
	// of the set holds a valid block.
	FindVictim(set *Set) int
}

// RecencyBitVictimFinder approximates LRU with one recency bit per way. It
// evicts the first way whose bit is clear. When every bit is set, it clears
// all of them and evicts way 0. This is not a true LRU order and is kept as is
// so that results match the recency-bit hardware model.
type RecencyBitVictimFinder struct {
}

// NewRecencyBitVictimFinder returns a newly constructed recency-bit evictor
func NewRecencyBitVictimFinder() *RecencyBitVictimFinder {
	return new(RecencyBitVictimFinder)
}

// FindVictim returns the first way that has not been used since the last
// sweep of the set.
func (e *RecencyBitVictimFinder) FindVictim(set *Set) int {
	for i := range set.Blocks {
		if !set.Blocks[i].IsRecent {
			return i
		}
	}

	for i := range set.Blocks {
		set.Blocks[i].IsRecent = false
	}

	return 0
}
