package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/log"
)

// Agent exposes the metrics endpoint and periodically runs the registered
// refresh functions, used for gauges that are sampled instead of updated
// on every change.
type Agent struct {
	Path            string
	RefreshInterval time.Duration

	mu         sync.Mutex
	refreshers []func()
}

// NewAgent exposes the prometheus endpoint at path on the router.
func NewAgent(path string, interval time.Duration, router *httprouter.HTTProuter) *Agent {
	router.ExposePrometheusEndpoint(path)
	return &Agent{Path: path, RefreshInterval: interval}
}

// AddRefresher adds a function to be run every RefreshInterval.
func (a *Agent) AddRefresher(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshers = append(a.refreshers, fn)
}

// Refresh runs the refresh functions once.
func (a *Agent) Refresh() {
	a.mu.Lock()
	fns := a.refreshers
	a.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Start runs Refresh every RefreshInterval until ctx is done.
func (a *Agent) Start(ctx context.Context) {
	ticker := time.NewTicker(a.RefreshInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.Refresh()
			}
		}
	}()
}

// Register the provided prometheus collector, logging a warning on error.
func Register(c prometheus.Collector) {
	if err := prometheus.Register(c); err != nil {
		log.Warnf("cannot register metrics: (%s) (%+v)", err, c)
	}
}

// SetBuildInfo publishes a constant info metric labeled with the build version.
func SetBuildInfo(app, version string) {
	vmetrics.GetOrCreateGauge(fmt.Sprintf("%s_info{version=%q}", app, version), func() float64 { return 1 })
}
