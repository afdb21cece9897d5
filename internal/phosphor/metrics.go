package phosphor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var signalErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "powerled",
	Subsystem: "dbus",
	Name:      "signal_errors_total",
	Help:      "PropertiesChanged signals dropped because they could not be decoded",
})
