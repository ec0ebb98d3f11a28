package monitoring

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// cacheCollector exports the counters of all the registered caches in the
// Prometheus format.
type cacheCollector struct {
	monitor *Monitor

	events   *prometheus.Desc
	hitRatio *prometheus.Desc
	geometry *prometheus.Desc
}

func newCacheCollector(m *Monitor) *cacheCollector {
	return &cacheCollector{
		monitor: m,
		events: prometheus.NewDesc(
			"cachesim_cache_events_total",
			"Number of cache events by kind.",
			[]string{"cache", "event"}, nil,
		),
		hitRatio: prometheus.NewDesc(
			"cachesim_cache_hit_ratio_percent",
			"Hits over total accesses, in percent.",
			[]string{"cache"}, nil,
		),
		geometry: prometheus.NewDesc(
			"cachesim_cache_info",
			"Geometry of the cache.",
			[]string{"cache", "sets", "ways"}, nil,
		),
	}
}

// Describe sends the descriptors of the metrics.
func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.events
	ch <- c.hitRatio
	ch <- c.geometry
}

// Collect reads the counters of every cache.
func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	for _, cache := range c.monitor.registeredCaches() {
		name := cache.Name()
		s := cache.Stats().Snapshot()

		events := []struct {
			kind  string
			count uint64
		}{
			{"access", s.TotalAccesses},
			{"read", s.Reads},
			{"write", s.Writes},
			{"hit", s.Hits},
			{"miss", s.Misses},
			{"eviction", s.Evictions},
			{"writeback", s.Writebacks},
		}

		for _, e := range events {
			ch <- prometheus.MustNewConstMetric(
				c.events, prometheus.CounterValue,
				float64(e.count), name, e.kind)
		}

		ch <- prometheus.MustNewConstMetric(
			c.hitRatio, prometheus.GaugeValue, s.HitRatio(), name)

		ch <- prometheus.MustNewConstMetric(
			c.geometry, prometheus.GaugeValue, 1,
			name, strconv.Itoa(cache.NumSets()), strconv.Itoa(cache.NumWays()))
	}
}
