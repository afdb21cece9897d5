package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	codesObserved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powerled",
		Subsystem: "tracker",
		Name:      "postcodes_observed_total",
		Help:      "POST codes examined by the boot state tracker",
	})

	codeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powerled",
		Subsystem: "tracker",
		Name:      "postcode_errors_total",
		Help:      "POST codes skipped because they could not be compared",
	})
)
