package sequencer

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.vocdoni.io/tokenvote/metrics"
)

var (
	heightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sequencer",
		Name:      "height",
		Help:      "Height of the last produced block",
	})
	mempoolGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sequencer",
		Name:      "mempool",
		Help:      "Number of transactions in the mempool",
	})
	txsDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sequencer",
		Name:      "txs_delivered_total",
		Help:      "Number of delivered transactions by type and result",
	}, []string{"type", "result"})
)

// RegisterMetrics registers the sequencer collectors in the default registry.
func RegisterMetrics() {
	metrics.Register(heightGauge)
	metrics.Register(mempoolGauge)
	metrics.Register(txsDelivered)
}

// RefreshMetrics samples the sequencer gauges.
func (s *Sequencer) RefreshMetrics() {
	heightGauge.Set(float64(s.Height()))
	mempoolGauge.Set(float64(s.MempoolSize()))
}
