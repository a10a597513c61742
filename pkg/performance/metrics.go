package performance

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors fed by the tracker.
type Metrics struct {
	ResolutionDuration *prometheus.HistogramVec
	Resolutions        *prometheus.CounterVec
}

// NewMetrics creates tracker metrics registered with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ResolutionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analyst_resolution_duration_seconds",
			Help:    "Time spent resolving a question, by query complexity and outcome",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30},
		}, []string{"complexity", "success"}),
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analyst_resolutions_total",
			Help: "Total number of tracked resolutions by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observe(complexity string, seconds float64, success bool) {
	m.ResolutionDuration.WithLabelValues(complexity, strconv.FormatBool(success)).Observe(seconds)
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
}
