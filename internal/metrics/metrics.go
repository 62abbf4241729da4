// Package metrics exposes Prometheus counters for pipeline runs. Runs are
// short-lived batch processes, so metrics are pushed to a gateway at exit
// rather than scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/plunkbot/plunkbot/internal/config"
)

// RunCollector counts pipeline work performed during one process run.
type RunCollector struct {
	registry *prometheus.Registry
	counters map[string]prometheus.Counter
	duration prometheus.Gauge
	started  time.Time
}

// Counter names accepted by Inc and Add.
const (
	EventsDiscovered = "events_discovered_total"
	EventsInserted   = "events_inserted_total"
	EventsDuplicate  = "events_duplicate_total"
	VideosDownloaded = "videos_downloaded_total"
	PlotsRendered    = "plots_rendered_total"
	SkeetsPosted     = "skeets_posted_total"
)

// NewRunCollector constructs a collector with one counter per pipeline stage.
func NewRunCollector() (*RunCollector, error) {
	registry := prometheus.NewRegistry()

	specs := []struct {
		name string
		help string
	}{
		{EventsDiscovered, "Qualifying plays found in provider feeds."},
		{EventsInserted, "New event rows written to the store."},
		{EventsDuplicate, "Discovered plays already present in the store."},
		{VideosDownloaded, "Play videos fetched to the shared directory."},
		{PlotsRendered, "Analysis plot sets written to the shared directory."},
		{SkeetsPosted, "Posts successfully submitted to Bluesky."},
	}

	counters := make(map[string]prometheus.Counter, len(specs))
	for _, spec := range specs {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plunkbot",
			Name:      spec.name,
			Help:      spec.help,
		})
		if err := registry.Register(counter); err != nil {
			return nil, err
		}
		counters[spec.name] = counter
	}

	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "plunkbot",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the completed run.",
	})
	if err := registry.Register(duration); err != nil {
		return nil, err
	}

	return &RunCollector{
		registry: registry,
		counters: counters,
		duration: duration,
		started:  time.Now(),
	}, nil
}

// Inc bumps a named counter by one.
func (c *RunCollector) Inc(name string) {
	c.Add(name, 1)
}

// Add bumps a named counter. Unknown names are dropped rather than panicking
// inside pipeline loops.
func (c *RunCollector) Add(name string, delta float64) {
	if counter, ok := c.counters[name]; ok {
		counter.Add(delta)
	}
}

// Push sends the run's counters to the configured gateway. An empty gateway
// URL disables the push; metrics stay best-effort and never fail a run on
// their own.
func (c *RunCollector) Push(cfg config.MetricsConfig) error {
	if cfg.PushgatewayURL == "" {
		return nil
	}

	c.duration.Set(time.Since(c.started).Seconds())

	err := push.New(cfg.PushgatewayURL, cfg.Job).
		Gatherer(c.registry).
		Add()
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
