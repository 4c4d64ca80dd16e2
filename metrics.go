package backdoor

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/ryanuber/columnize"
)

// Collector mirrors the engine's and driver's running counters into
// go-metrics (§A.4), the same in-memory sink nomad uses for its internal
// telemetry endpoint, so a CLI run can render a final summary table
// without the core packages taking any direct rendering dependency.
type Collector struct {
	sink    *metrics.InmemSink
	metrics *metrics.Metrics
}

// NewCollector builds a Collector backed by a single retained interval,
// long enough to outlive any one CLI invocation.
func NewCollector() *Collector {
	sink := metrics.NewInmemSink(time.Hour, time.Hour)
	cfg := metrics.DefaultConfig("backdoor")
	cfg.EnableHostname = false
	cfg.EnableRuntimeMetrics = false
	m, err := metrics.New(cfg, sink)
	if err != nil {
		panic(fmt.Sprintf("backdoor: failed to initialize metrics: %v", err))
	}
	return &Collector{sink: sink, metrics: m}
}

// SetGauge records the current value of a monotonically increasing
// engine/driver counter (conflicts, decisions, propagations, restarts,
// cache_hits, cache_misses) under the given key.
func (c *Collector) SetGauge(key string, value int64) {
	c.metrics.SetGauge([]string{key}, float32(value))
}

// IncrCounter increments a named counter (e.g. budget_filter_remaining
// consumption, product_size deltas).
func (c *Collector) IncrCounter(key string, delta int64) {
	c.metrics.IncrCounter([]string{key}, float32(delta))
}

// RecordEngine mirrors an Engine's running counters as gauges (§A.4); the
// CLI calls it once, after the driver run.
func (c *Collector) RecordEngine(e *Engine) {
	c.SetGauge("conflicts", e.Conflicts())
	c.SetGauge("decisions", e.Decisions())
	c.SetGauge("propagations", e.Propagations())
	c.SetGauge("restarts", e.Restarts())
}

// RecordDriver mirrors a Driver round's state as gauges.
func (c *Collector) RecordDriver(productSize int, cacheHits, cacheMisses int, budgetFilterRemaining int64) {
	c.SetGauge("product_size", int64(productSize))
	c.SetGauge("cache_hits", int64(cacheHits))
	c.SetGauge("cache_misses", int64(cacheMisses))
	c.SetGauge("budget_filter_remaining", budgetFilterRemaining)
}

// Render formats the most recent interval's gauges as an operator-facing
// table, replacing the teacher's hand-padded stats map printer in
// cmd/saturday/saturday.go with columnize, the way nomad's CLI renders
// operator output tables.
func (c *Collector) Render() string {
	data := c.sink.Data()
	if len(data) == 0 {
		return ""
	}
	interval := data[len(data)-1]
	interval.RLock()
	defer interval.RUnlock()

	lines := []string{"Metric | Value"}
	names := make([]string, 0, len(interval.Gauges))
	for name := range interval.Gauges {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s | %.0f", name, interval.Gauges[name].Value))
	}
	return columnize.SimpleFormat(lines)
}
