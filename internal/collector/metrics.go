package collector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/infrapulse/fabricmon/internal/models"
)

var (
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabricmon",
		Subsystem: "collector",
		Name:      "passes_total",
		Help:      "Collection passes by fabric kind and result.",
	}, []string{"kind", "result"})

	passDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fabricmon",
		Subsystem: "collector",
		Name:      "pass_duration_seconds",
		Help:      "Wall-clock duration of collection passes.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"kind"})
)

func observePass(kind models.FabricKind, success bool, elapsed time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	passesTotal.WithLabelValues(string(kind), result).Inc()
	passDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}
