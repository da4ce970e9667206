package review

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeUpdated = "updated"
	outcomeFailed  = "failed"
)

type Metrics struct {
	items    *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics registers the bulk-apply collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		items: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_bulk_items_total",
				Help: "Transactions processed by bulk apply, by path and outcome",
			},
			[]string{"path", "outcome"},
		),
		duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tally_bulk_apply_duration_seconds",
				Help:    "Wall time of a bulk apply run",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}
}

func (m *Metrics) item(path Path, outcome string) {
	if m == nil {
		return
	}

	m.items.WithLabelValues(string(path), outcome).Inc()
}

func (m *Metrics) observe(start time.Time) {
	if m == nil {
		return
	}

	m.duration.Observe(time.Since(start).Seconds())
}
