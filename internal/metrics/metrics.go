// Package metrics registers the option radar Prometheus collectors:
//
//	option_radar_fetch_success_total{symbol}
//	option_radar_fetch_errors_total{symbol,kind}
//	option_radar_pcr{symbol}
//	option_radar_spot{symbol}
//	option_radar_refresh_seconds
//	option_radar_circuit_open{name}
//	go_* and process_* system metrics
//
// They are served by the dashboard on /metrics via Handler.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *prometheus.Registry

	fetchSuccess   *prometheus.CounterVec
	fetchErrors    *prometheus.CounterVec
	pcrGauge       *prometheus.GaugeVec
	spotGauge      *prometheus.GaugeVec
	refreshSeconds prometheus.Histogram
	circuitOpen    *prometheus.GaugeVec
)

// Init creates and registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		fetchSuccess = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "option_radar_fetch_success_total",
				Help: "Number of option chain snapshots fetched successfully",
			},
			[]string{"symbol"},
		)
		fetchErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "option_radar_fetch_errors_total",
				Help: "Number of failed symbol refreshes by error kind",
			},
			[]string{"symbol", "kind"},
		)
		pcrGauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "option_radar_pcr",
				Help: "Put/call open interest ratio of the last rendered window",
			},
			[]string{"symbol"},
		)
		spotGauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "option_radar_spot",
				Help: "Spot price of the underlying at the last refresh",
			},
			[]string{"symbol"},
		)
		refreshSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "option_radar_refresh_seconds",
			Help:    "Wall time of one full dashboard refresh",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		})
		circuitOpen = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "option_radar_circuit_open",
				Help: "1 while the upstream circuit breaker rejects requests",
			},
			[]string{"name"},
		)

		registry.MustRegister(
			fetchSuccess,
			fetchErrors,
			pcrGauge,
			spotGauge,
			refreshSeconds,
			circuitOpen,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// Handler returns the /metrics handler for the radar registry.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func Registry() *prometheus.Registry {
	Init()
	return registry
}

// IncrementSuccess increases the success counter for a given symbol.
func IncrementSuccess(symbol string) {
	if fetchSuccess != nil {
		fetchSuccess.WithLabelValues(symbol).Inc()
	}
}

// IncrementError increases the error counter for a given symbol and kind.
func IncrementError(symbol, kind string) {
	if fetchErrors != nil {
		fetchErrors.WithLabelValues(symbol, kind).Inc()
	}
}

// ObserveAnalysis records the headline numbers of a rendered symbol.
func ObserveAnalysis(symbol string, spot, pcr float64) {
	if pcrGauge != nil {
		pcrGauge.WithLabelValues(symbol).Set(pcr)
		spotGauge.WithLabelValues(symbol).Set(spot)
	}
}

// ObserveRefresh records the duration of one refresh.
func ObserveRefresh(d time.Duration) {
	if refreshSeconds != nil {
		refreshSeconds.Observe(d.Seconds())
	}
}

// SetCircuitOpen flags whether the named breaker is open.
func SetCircuitOpen(name string, open bool) {
	if circuitOpen == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	circuitOpen.WithLabelValues(name).Set(v)
}
