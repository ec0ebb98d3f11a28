package tagging

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cachesim/mem/cache/stats"
)

var _ = Describe("Set", func() {
	var (
		mockCtrl *gomock.Controller
		counters *stats.Statistics
		set      *Set
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		counters = stats.New()
		set = NewSet(4, nil)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	read := func(tag uint64) Outcome {
		return set.Access(tag, false, counters)
	}

	write := func(tag uint64) Outcome {
		return set.Access(tag, true, counters)
	}

	It("should start with no valid ways", func() {
		Expect(set.NumWays()).To(Equal(4))
		for i, block := range set.Blocks {
			Expect(block.WayID).To(Equal(i))
			Expect(block.IsValid).To(BeFalse())
			Expect(block.IsDirty).To(BeFalse())
			Expect(block.IsRecent).To(BeFalse())
		}
	})

	It("should panic when created without ways", func() {
		Expect(func() { NewSet(0, nil) }).To(Panic())
	})

	It("should clear all bits on reset", func() {
		write(0x10)
		read(0x20)

		set.Reset()

		wayID, found := set.FindFreeWay()
		Expect(found).To(BeTrue())
		Expect(wayID).To(Equal(0))
		for _, block := range set.Blocks {
			Expect(block.IsValid).To(BeFalse())
			Expect(block.IsDirty).To(BeFalse())
			Expect(block.IsRecent).To(BeFalse())
		}
	})

	Context("lookup", func() {
		It("should count a hit on a valid matching way", func() {
			set.Blocks[2].Tag = 0x42
			set.Blocks[2].IsValid = true

			recorder := NewMockStatsRecorder(mockCtrl)
			recorder.EXPECT().AddHit()

			wayID, found := set.Lookup(0x42, recorder)

			Expect(found).To(BeTrue())
			Expect(wayID).To(Equal(2))
		})

		It("should not hit on a matching tag that is not valid", func() {
			set.Blocks[0].Tag = 0x42

			recorder := NewMockStatsRecorder(mockCtrl)
			recorder.EXPECT().AddMiss()

			_, found := set.Lookup(0x42, recorder)

			Expect(found).To(BeFalse())
		})

		It("should keep scanning past a stale matching tag", func() {
			set.Blocks[0].Tag = 0x42
			set.Blocks[3].Tag = 0x42
			set.Blocks[3].IsValid = true

			recorder := NewMockStatsRecorder(mockCtrl)
			recorder.EXPECT().AddHit()

			wayID, found := set.Lookup(0x42, recorder)

			Expect(found).To(BeTrue())
			Expect(wayID).To(Equal(3))
		})
	})

	Context("free way discovery", func() {
		It("should return the first invalid way", func() {
			set.Blocks[0].IsValid = true
			set.Blocks[2].IsValid = true

			wayID, found := set.FindFreeWay()

			Expect(found).To(BeTrue())
			Expect(wayID).To(Equal(1))
		})

		It("should report none when every way is valid", func() {
			for i := range set.Blocks {
				set.Blocks[i].IsValid = true
			}

			_, found := set.FindFreeWay()

			Expect(found).To(BeFalse())
		})
	})

	Context("victim selection", func() {
		It("should count an eviction and a writeback for a dirty victim", func() {
			victimFinder := NewMockVictimFinder(mockCtrl)
			set = NewSet(4, victimFinder)
			set.Blocks[2].IsValid = true
			set.Blocks[2].IsDirty = true

			recorder := NewMockStatsRecorder(mockCtrl)
			victimFinder.EXPECT().FindVictim(set).Return(2)
			recorder.EXPECT().AddWriteback()
			recorder.EXPECT().AddEviction()

			Expect(set.SelectVictim(recorder)).To(Equal(2))
		})

		It("should only count an eviction for a clean victim", func() {
			victimFinder := NewMockVictimFinder(mockCtrl)
			set = NewSet(4, victimFinder)
			set.Blocks[1].IsValid = true

			recorder := NewMockStatsRecorder(mockCtrl)
			victimFinder.EXPECT().FindVictim(set).Return(1)
			recorder.EXPECT().AddEviction()

			Expect(set.SelectVictim(recorder)).To(Equal(1))
		})
	})

	Context("access", func() {
		It("should miss on the first access to a tag", func() {
			outcome := read(0x1)

			Expect(outcome.Hit).To(BeFalse())
			Expect(outcome.WayID).To(Equal(0))
			Expect(counters.Snapshot().Misses).To(Equal(uint64(1)))
		})

		It("should miss then hit on a repeated read", func() {
			first := read(0x1)
			second := read(0x1)

			Expect(first.Hit).To(BeFalse())
			Expect(second.Hit).To(BeTrue())
			Expect(second.WayID).To(Equal(first.WayID))

			snapshot := counters.Snapshot()
			Expect(snapshot.Hits).To(Equal(uint64(1)))
			Expect(snapshot.Misses).To(Equal(uint64(1)))
			Expect(snapshot.Reads).To(Equal(uint64(2)))
		})

		It("should install a write miss as dirty", func() {
			outcome := write(0x7)

			block := set.Blocks[outcome.WayID]
			Expect(block.Tag).To(Equal(uint64(0x7)))
			Expect(block.IsValid).To(BeTrue())
			Expect(block.IsDirty).To(BeTrue())
			Expect(block.IsRecent).To(BeTrue())
			Expect(counters.Snapshot().Writes).To(Equal(uint64(1)))
		})

		It("should install a read miss as clean", func() {
			outcome := read(0x7)

			Expect(set.Blocks[outcome.WayID].IsDirty).To(BeFalse())
		})

		It("should mark a block dirty on a write hit without changing its tag",
			func() {
				read(0x9)
				outcome := write(0x9)

				Expect(outcome.Hit).To(BeTrue())
				block := set.Blocks[outcome.WayID]
				Expect(block.Tag).To(Equal(uint64(0x9)))
				Expect(block.IsDirty).To(BeTrue())
			})

		It("should fill ways in index order", func() {
			for i := 0; i < 4; i++ {
				outcome := read(uint64(0x100 + i))
				Expect(outcome.WayID).To(Equal(i))
				Expect(outcome.Evicted).To(BeFalse())
			}
		})

		It("should sweep recency and evict way 0 when all ways are recent",
			func() {
				for i := 0; i < 4; i++ {
					read(uint64(0x100 + i))
				}

				outcome := read(0x200)

				Expect(outcome.Evicted).To(BeTrue())
				Expect(outcome.WayID).To(Equal(0))
				Expect(outcome.EvictedTag).To(Equal(uint64(0x100)))
				Expect(outcome.Writeback).To(BeFalse())
				Expect(set.Blocks[0].IsRecent).To(BeTrue())
				for i := 1; i < 4; i++ {
					Expect(set.Blocks[i].IsRecent).To(BeFalse())
				}
				Expect(counters.Snapshot().Evictions).To(Equal(uint64(1)))
				Expect(counters.Snapshot().Writebacks).To(BeZero())
			})

		It("should evict the first way that is not recent after a sweep",
			func() {
				for i := 0; i < 4; i++ {
					read(uint64(0x100 + i))
				}
				read(0x200)

				outcome := read(0x300)

				Expect(outcome.WayID).To(Equal(1))
				Expect(outcome.EvictedTag).To(Equal(uint64(0x101)))
			})

		It("should count a writeback when way 0 is dirty at the sweep", func() {
			write(0x100)
			for i := 1; i < 4; i++ {
				read(uint64(0x100 + i))
			}

			outcome := read(0x200)

			Expect(outcome.WayID).To(Equal(0))
			Expect(outcome.Writeback).To(BeTrue())
			Expect(set.Blocks[0].IsDirty).To(BeFalse())
			Expect(counters.Snapshot().Writebacks).To(Equal(uint64(1)))
		})

		It("should count a writeback when a block dirtied by a write hit is evicted",
			func() {
				for i := 0; i < 4; i++ {
					read(uint64(0x100 + i))
				}
				write(0x100)

				read(0x200)

				Expect(counters.Snapshot().Evictions).To(Equal(uint64(1)))
				Expect(counters.Snapshot().Writebacks).To(Equal(uint64(1)))
			})

		It("should reproduce the A B C(write) D E scenario", func() {
			tagA, tagB, tagC, tagD, tagE := uint64(0xA), uint64(0xB),
				uint64(0xC), uint64(0xD), uint64(0xE)

			outcomes := []Outcome{
				read(tagA),
				read(tagB),
				write(tagC),
				read(tagD),
			}
			for i, outcome := range outcomes {
				Expect(outcome.Hit).To(BeFalse())
				Expect(outcome.WayID).To(Equal(i))
			}

			last := read(tagE)

			Expect(last.Hit).To(BeFalse())
			Expect(last.WayID).To(Equal(0))
			Expect(last.EvictedTag).To(Equal(tagA))
			Expect(set.Blocks[0].Tag).To(Equal(tagE))
			Expect(set.Blocks[2].IsDirty).To(BeTrue())

			snapshot := counters.Snapshot()
			Expect(snapshot.Misses).To(Equal(uint64(5)))
			Expect(snapshot.Hits).To(BeZero())
			Expect(snapshot.Evictions).To(Equal(uint64(1)))
			Expect(snapshot.Writebacks).To(BeZero())
			Expect(snapshot.Reads).To(Equal(uint64(4)))
			Expect(snapshot.Writes).To(Equal(uint64(1)))
		})

		It("should keep the counters consistent over a random trace", func() {
			rng := rand.New(rand.NewSource(42))
			numAccesses := 2000

			for i := 0; i < numAccesses; i++ {
				set.Access(uint64(rng.Intn(10)), rng.Intn(3) == 0, counters)

				for _, block := range set.Blocks {
					if block.IsDirty {
						Expect(block.IsValid).To(BeTrue())
					}
				}
			}

			snapshot := counters.Snapshot()
			Expect(snapshot.Hits + snapshot.Misses).
				To(Equal(uint64(numAccesses)))
			Expect(snapshot.Reads + snapshot.Writes).
				To(Equal(uint64(numAccesses)))
			Expect(snapshot.Writebacks).
				To(BeNumerically("<=", snapshot.Evictions))
			Expect(snapshot.TotalAccesses).To(BeZero())
		})
	})
})

var _ = Describe("RecencyBitVictimFinder", func() {
	var (
		set          *Set
		victimFinder *RecencyBitVictimFinder
	)

	BeforeEach(func() {
		victimFinder = NewRecencyBitVictimFinder()
		set = NewSet(4, victimFinder)
		for i := range set.Blocks {
			set.Blocks[i].IsValid = true
			set.Blocks[i].IsRecent = true
		}
	})

	It("should pick the first way that is not recent", func() {
		set.Blocks[2].IsRecent = false
		set.Blocks[3].IsRecent = false

		Expect(victimFinder.FindVictim(set)).To(Equal(2))
		Expect(set.Blocks[0].IsRecent).To(BeTrue())
	})

	It("should reset every recency bit and pick way 0 when all are recent",
		func() {
			Expect(victimFinder.FindVictim(set)).To(Equal(0))

			for _, block := range set.Blocks {
				Expect(block.IsRecent).To(BeFalse())
			}
		})
})
