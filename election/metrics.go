package election

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.vocdoni.io/tokenvote/log"
	"go.vocdoni.io/tokenvote/metrics"
)

var (
	votesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "election",
		Name:      "votes_total",
		Help:      "Number of votes cast",
	})
	candidatesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "election",
		Name:      "candidates",
		Help:      "Number of registered candidates",
	})
	txnCommitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "election",
		Name:      "txn_committed_total",
		Help:      "Number of committed state transactions",
	})
	txnDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "election",
		Name:      "txn_discarded_total",
		Help:      "Number of state transactions discarded because of an error",
	})
)

// RegisterMetrics registers the election collectors in the default registry.
func RegisterMetrics() {
	metrics.Register(votesCounter)
	metrics.Register(candidatesGauge)
	metrics.Register(txnCommitted)
	metrics.Register(txnDiscarded)
}

// RefreshMetrics sets the candidates gauge from the stored roster, so it is
// right after a restart.
func (e *Engine) RefreshMetrics() {
	count, err := e.CandidateCount()
	if err != nil {
		log.Warnf("cannot refresh election metrics: %v", err)
		return
	}
	candidatesGauge.Set(float64(count))
}
