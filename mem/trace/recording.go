package trace

import (
	"context"
	"fmt"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache/stats"
)

// RecordedCache is the final state of a cache read back from a recording.
type RecordedCache struct {
	Name     string
	ByteSize uint64
	NumSets  int
	NumWays  int
	Stats    stats.Snapshot
}

// ReadRecordedCaches returns the caches stored in a recording, in the order
// they were recorded.
func ReadRecordedCaches(
	ctx context.Context,
	reader datarecording.DataReader,
) ([]RecordedCache, error) {
	reader.MapTable(statsTableName, statsEntry{})

	results, _, err := reader.Query(ctx, statsTableName,
		datarecording.QueryParams{OrderBy: "rowid"})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", statsTableName, err)
	}

	caches := make([]RecordedCache, 0, len(results))
	for _, r := range results {
		e := r.(*statsEntry)
		caches = append(caches, RecordedCache{
			Name:     e.Location,
			ByteSize: e.ByteSize,
			NumSets:  e.NumSets,
			NumWays:  e.NumWays,
			Stats: stats.Snapshot{
				TotalAccesses: e.TotalAccesses,
				Reads:         e.Reads,
				Writes:        e.Writes,
				Hits:          e.Hits,
				Misses:        e.Misses,
				Evictions:     e.Evictions,
				Writebacks:    e.Writebacks,
			},
		})
	}

	return caches, nil
}
