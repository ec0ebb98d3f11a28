package cache

import (
	"fmt"

	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/mem/cache/stats"
	"github.com/sarchlab/cachesim/sim"
)

// KB is 1024 bytes.
const KB uint64 = 1 << 10

// MaxNumSets is the largest number of sets a cache can have.
const MaxNumSets uint64 = 1 << 24

// Builder can build caches.
type Builder struct {
	log2BlockSize    int
	wayAssociativity int
	byteSize         uint64
	hooks            []sim.Hook
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		log2BlockSize:    6,
		wayAssociativity: 4,
		byteSize:         16 * KB,
	}
}

// WithLog2BlockSize sets the log2 of the cache line size of the builder.
func (b Builder) WithLog2BlockSize(log2BlockSize int) Builder {
	b.log2BlockSize = log2BlockSize
	return b
}

// WithWayAssociativity sets the way associativity of the builder.
func (b Builder) WithWayAssociativity(wayAssociativity int) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithByteSize sets the capacity of the cache in bytes.
func (b Builder) WithByteSize(byteSize uint64) Builder {
	b.byteSize = byteSize
	return b
}

// WithHook registers a hook on every cache built by the builder.
func (b Builder) WithHook(hook sim.Hook) Builder {
	hooks := make([]sim.Hook, 0, len(b.hooks)+1)
	hooks = append(hooks, b.hooks...)
	b.hooks = append(hooks, hook)

	return b
}

// NumSets returns the number of sets of the configured cache.
func (b Builder) NumSets() int {
	setSize := (uint64(1) << b.log2BlockSize) * uint64(b.wayAssociativity)
	return int(b.byteSize / setSize)
}

// Validate checks that the configured geometry describes a real cache.
func (b Builder) Validate() error {
	if b.log2BlockSize < 0 || b.log2BlockSize > 30 {
		return fmt.Errorf("log2 block size %d out of range [0, 30]",
			b.log2BlockSize)
	}

	if b.wayAssociativity <= 0 {
		return fmt.Errorf("way associativity must be positive, got %d",
			b.wayAssociativity)
	}

	blockSize := uint64(1) << b.log2BlockSize
	setSize := blockSize * uint64(b.wayAssociativity)

	if b.byteSize == 0 || b.byteSize%setSize != 0 {
		return fmt.Errorf(
			"cache size %d is not a multiple of the set size %d "+
				"(%d ways of %d bytes)",
			b.byteSize, setSize, b.wayAssociativity, blockSize)
	}

	numSets := b.byteSize / setSize
	if numSets > MaxNumSets {
		return fmt.Errorf("number of sets %d exceeds the limit of %d",
			numSets, MaxNumSets)
	}

	if numSets&(numSets-1) != 0 {
		return fmt.Errorf("number of sets %d is not a power of 2", numSets)
	}

	return nil
}

// Build builds a cache. It panics if the configuration does not pass
// Validate or if the name does not follow the naming convention.
func (b Builder) Build(name string) *Cache {
	if err := b.Validate(); err != nil {
		panic(err)
	}

	sim.NameMustBeValid(name)

	numSets := b.NumSets()

	c := &Cache{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		byteSize:     b.byteSize,
		numWays:      b.wayAssociativity,
		decoder:      NewAddressDecoder(b.log2BlockSize, numSets),
		stats:        stats.New(),
		sets:         make([]*tagging.Set, numSets),
	}

	victimFinder := tagging.NewRecencyBitVictimFinder()
	for i := range c.sets {
		c.sets[i] = tagging.NewSet(b.wayAssociativity, victimFinder)
	}

	for _, hook := range b.hooks {
		c.AcceptHook(hook)
	}

	return c
}
