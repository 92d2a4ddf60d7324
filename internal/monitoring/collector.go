// Package monitoring aggregates classification outcomes into a snapshot
// served by the metrics endpoint.
package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/crowdsense/vibesense/internal/store"
)

// MetricsSnapshot holds a point-in-time view of classifier health.
type MetricsSnapshot struct {
	// Per-outcome counters since process start: cached, no_photos,
	// classified, error.
	Results map[string]int `json:"results"`

	// Stage B trigger counters keyed by gate reason.
	StageBTriggers map[string]int `json:"stage_b_triggers"`

	// Mean overall confidence of profiles classified this process.
	MeanConfidence float64 `json:"mean_confidence"`
	Observations   int     `json:"observations"`

	// Total profiles persisted in the store.
	VenuesWithProfile int `json:"venues_with_profile"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collector accumulates in-process classification counters and combines
// them with store-level gauges on Snapshot.
type Collector struct {
	mu             sync.Mutex
	results        map[string]int
	stageBTriggers map[string]int
	confidenceSum  float64
	observations   int

	store store.Store
}

// NewCollector creates a metrics collector backed by the given store.
func NewCollector(st store.Store) *Collector {
	return &Collector{
		results:        make(map[string]int),
		stageBTriggers: make(map[string]int),
		store:          st,
	}
}

// RecordResult counts one per-venue classification outcome.
func (c *Collector) RecordResult(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[kind]++
}

// RecordStageBTrigger counts one gate rule firing.
func (c *Collector) RecordStageBTrigger(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stageBTriggers[reason]++
}

// ObserveConfidence records the overall confidence of a freshly built profile.
func (c *Collector) ObserveConfidence(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confidenceSum += v
	c.observations++
}

// Snapshot returns the current counters plus the persisted-profile gauge.
func (c *Collector) Snapshot(ctx context.Context) (*MetricsSnapshot, error) {
	count, err := c.store.CountVibeProfiles(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count profiles")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &MetricsSnapshot{
		Results:           make(map[string]int, len(c.results)),
		StageBTriggers:    make(map[string]int, len(c.stageBTriggers)),
		Observations:      c.observations,
		VenuesWithProfile: count,
		CollectedAt:       time.Now().UTC(),
	}
	for k, v := range c.results {
		snap.Results[k] = v
	}
	for k, v := range c.stageBTriggers {
		snap.StageBTriggers[k] = v
	}
	if c.observations > 0 {
		snap.MeanConfidence = c.confidenceSum / float64(c.observations)
	}
	return snap, nil
}
