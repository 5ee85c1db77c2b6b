package web

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type scanMetrics struct {
	scans *prometheus.CounterVec
}

func newScanMetrics(reg prometheus.Registerer) *scanMetrics {
	scans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "librarydesk",
		Name:      "scans_total",
		Help:      "Scan uploads by outcome.",
	}, []string{"outcome"})
	if err := reg.Register(scans); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			scans = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return &scanMetrics{scans: scans}
}

func (m *scanMetrics) observe(outcome string) {
	m.scans.WithLabelValues(outcome).Inc()
}
