package led

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actuationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powerled",
		Subsystem: "led",
		Name:      "actuation_errors_total",
		Help:      "LED group requests that failed",
	})

	recomputations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powerled",
		Subsystem: "led",
		Name:      "recomputations_total",
		Help:      "Times the LED groups were reapplied",
	})

	presentationGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "powerled",
		Subsystem: "led",
		Name:      "presentation",
		Help:      "Current LED presentation (1 for the active one)",
	}, []string{"presentation"})
)

// observePresentation sets the presentation gauge so exactly one label is 1.
func observePresentation(p Presentation) {
	for _, candidate := range []Presentation{Standby, PostActive, PoweredOnComplete} {
		value := 0.0
		if candidate == p {
			value = 1
		}
		presentationGauge.WithLabelValues(candidate.String()).Set(value)
	}
}
