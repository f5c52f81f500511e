package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is an aggregate over the whole collection, valid until the
// backing document changes.
type Snapshot struct {
	Total        int       `json:"total"`
	AveragePrice float64   `json:"averagePrice"`
	CachedAt     time.Time `json:"cachedAt"`
}

type StatsResponse struct {
	Snapshot
	FromCache bool `json:"fromCache"`
}

// ComputeStats averages every item that has a usable price. Items whose
// price is missing count as zero; items with a non-numeric price are left
// out of the mean but still count toward Total.
func ComputeStats(items []Item, now time.Time) Snapshot {
	var (
		sum float64
		n   int
	)
	for _, it := range items {
		p, ok := it.statsPrice()
		if !ok {
			continue
		}
		sum += p
		n++
	}

	avg := 0.0
	if n > 0 {
		avg = sum / float64(n)
	}

	return Snapshot{
		Total:        len(items),
		AveragePrice: avg,
		CachedAt:     now.UTC(),
	}
}

// StatsCache holds at most one Snapshot. It is either empty or cached;
// Invalidate is the only way back to empty.
type StatsCache struct {
	mu     sync.Mutex
	snap   *Snapshot
	gen    uint64
	bypass bool

	now     func() time.Time
	metrics *StatsMetrics
}

func NewStatsCache(metrics *StatsMetrics) *StatsCache {
	return &StatsCache{now: time.Now, metrics: metrics}
}

// Get returns the cached snapshot, or loads the collection and computes a
// new one. A load error is returned as is and nothing is cached. If the cache
// was invalidated while the computation ran, the fresh result is returned but
// not stored, since it may already be stale.
func (c *StatsCache) Get(ctx context.Context, load func(context.Context) ([]Item, error)) (StatsResponse, error) {
	c.mu.Lock()
	if c.snap != nil && !c.bypass {
		snap := *c.snap
		c.mu.Unlock()
		c.metrics.hit()
		return StatsResponse{Snapshot: snap, FromCache: true}, nil
	}
	gen := c.gen
	c.mu.Unlock()

	c.metrics.miss()

	items, err := load(ctx)
	if err != nil {
		return StatsResponse{}, err
	}
	snap := ComputeStats(items, c.clock())

	c.mu.Lock()
	if c.gen == gen && c.snap == nil && !c.bypass {
		stored := snap
		c.snap = &stored
	}
	c.mu.Unlock()

	return StatsResponse{Snapshot: snap, FromCache: false}, nil
}

func (c *StatsCache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.gen++
	c.mu.Unlock()

	c.metrics.invalidated()
}

// SetBypass turns caching off while nothing reports document changes, so
// every Get recomputes. Turning it back on starts from an empty cache.
func (c *StatsCache) SetBypass(on bool) {
	c.mu.Lock()
	c.bypass = on
	c.snap = nil
	c.gen++
	c.mu.Unlock()
}

// Cached reports whether a snapshot is currently held.
func (c *StatsCache) Cached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap != nil
}

func (c *StatsCache) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

type StatsMetrics struct {
	Requests      *prometheus.CounterVec
	Invalidations prometheus.Counter
}

func NewStatsMetrics(reg prometheus.Registerer) *StatsMetrics {
	m := &StatsMetrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_stats_cache_requests_total",
				Help: "Stats requests by cache result",
			},
			[]string{"result"},
		),
		Invalidations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_stats_cache_invalidations_total",
				Help: "Stats cache invalidations triggered by document changes",
			},
		),
	}

	reg.MustRegister(m.Requests, m.Invalidations)
	return m
}

func (m *StatsMetrics) hit() {
	if m != nil {
		m.Requests.WithLabelValues("hit").Inc()
	}
}

func (m *StatsMetrics) miss() {
	if m != nil {
		m.Requests.WithLabelValues("miss").Inc()
	}
}

func (m *StatsMetrics) invalidated() {
	if m != nil {
		m.Invalidations.Inc()
	}
}
