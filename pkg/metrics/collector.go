package metrics

import "time"

// StatsSource is implemented by anything that can report content-store
// statistics for periodic metric collection (satisfied by
// *storage.Store without an import cycle).
type StatsSource interface {
	Stats() (objectsByKind map[string]int64, bytesByKindLocation map[[2]string]int64, err error)
}

// Collector periodically samples a StatsSource and a repository's lane
// budgets into the package's Prometheus gauges.
type Collector struct {
	source BudgetAndStatsSource
	stopCh chan struct{}
}

// BudgetAndStatsSource is the minimal surface the collector needs from a
// repository: object/byte counts and per-lane budget usage.
type BudgetAndStatsSource interface {
	StatsSource
	BudgetUsage() (map[string]map[string]float64, error) // lane -> limit -> pct
}

// NewCollector creates a new metrics collector.
func NewCollector(source BudgetAndStatsSource) *Collector {
	return &Collector{
		source: source,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a fixed interval.
func (c *Collector) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if objByKind, bytesByKindLoc, err := c.source.Stats(); err == nil {
		for kind, n := range objByKind {
			ObjectsTotal.WithLabelValues(kind).Set(float64(n))
		}
		for kindLoc, n := range bytesByKindLoc {
			BytesStored.WithLabelValues(kindLoc[0], kindLoc[1]).Set(float64(n))
		}
	}

	if usage, err := c.source.BudgetUsage(); err == nil {
		for lane, limits := range usage {
			for limit, pct := range limits {
				BudgetUsagePct.WithLabelValues(lane, limit).Set(pct)
			}
		}
	}
}
