package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	generationTime prometheus.Histogram
}

func newMetrics(queueLen func() int) *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "legalsum",
			Name:      "summarize_requests_total",
			Help:      "Summarization requests by outcome.",
		}, []string{"outcome"}),
		generationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "legalsum",
			Name:      "generation_seconds",
			Help:      "Wall-clock time of summary generation.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
	}

	if queueLen != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "legalsum",
			Name:      "generation_queue_length",
			Help:      "Requests waiting for the generation worker.",
		}, func() float64 {
			return float64(queueLen())
		})
	}

	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
