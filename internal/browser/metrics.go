package browser

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auditor",
		Subsystem: "browser",
		Name:      "launches_total",
		Help:      "Browser session launch attempts by outcome.",
	}, []string{"outcome"})
	metricOpenPages = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "auditor",
		Subsystem: "browser",
		Name:      "open_pages",
		Help:      "Page contexts currently acquired and not yet closed.",
	})
)
