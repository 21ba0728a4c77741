package mtree

import (
	"fmt"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// process wide counters (exported through metrics.WritePrometheus)
var (
	linkCacheHitsTotal  = metrics.NewCounter(`mtree_link_cache_hits_total`)
	parentRebuildsTotal = metrics.NewCounter(`mtree_parent_rebuilds_total`)
	inflationsTotal     = metrics.NewCounter(`mtree_inflations_total`)
)

func countOp(op string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`mtree_operations_total{op=%q}`, op)).Inc()
}

// Stats are the counters of a single multitree instance.
type Stats struct {
	LinkCacheHits  uint64 // link records served from the cache
	LinkDecodes    uint64 // link records decoded from the log
	ParentRebuilds uint64 // rebuilds of the parent list
	Inflations     uint64 // target trees inflated through the factory
}

type stats struct {
	linkCacheHits  atomic.Uint64
	linkDecodes    atomic.Uint64
	parentRebuilds atomic.Uint64
	inflations     atomic.Uint64
}

func (s *stats) cacheHit() {
	s.linkCacheHits.Add(1)
	linkCacheHitsTotal.Inc()
}

func (s *stats) parentRebuild() {
	s.parentRebuilds.Add(1)
	parentRebuildsTotal.Inc()
}

func (s *stats) inflation() {
	s.inflations.Add(1)
	inflationsTotal.Inc()
}

func (s *stats) snapshot() Stats {
	return Stats{
		LinkCacheHits:  s.linkCacheHits.Load(),
		LinkDecodes:    s.linkDecodes.Load(),
		ParentRebuilds: s.parentRebuilds.Load(),
		Inflations:     s.inflations.Load(),
	}
}
