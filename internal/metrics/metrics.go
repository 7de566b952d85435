package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch results recorded by CapabilityFetches.
const (
	ResultOK           = "ok"
	ResultUnauthorized = "unauthorized"
	ResultError        = "error"
)

// Metrics holds the collectors shared by the loader, sessions and server.
type Metrics struct {
	CapabilityFetches *prometheus.CounterVec
	AnimationTicks    prometheus.Counter
	ActiveSessions    prometheus.Gauge
	LayerSelections   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CapabilityFetches: CapabilityFetches(),
		AnimationTicks:    AnimationTicks(),
		ActiveSessions:    ActiveSessions(),
		LayerSelections:   LayerSelections(),
	}
	if reg != nil {
		reg.MustRegister(m.CapabilityFetches, m.AnimationTicks, m.ActiveSessions, m.LayerSelections)
	}
	return m
}

// CapabilityFetches counts GetCapabilities requests per bundle and result.
func CapabilityFetches() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wms_capability_fetches_total",
			Help: "Total number of WMS GetCapabilities requests",
		},
		[]string{"bundle", "result"},
	)
}

// AnimationTicks counts animation timer ticks across sessions.
func AnimationTicks() prometheus.Counter {
	return prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wms_animation_ticks_total",
			Help: "Total number of animation frames advanced",
		},
	)
}

// ActiveSessions tracks connected UI sessions.
func ActiveSessions() prometheus.Gauge {
	return prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wms_sessions_active",
			Help: "Number of connected map sessions",
		},
	)
}

// LayerSelections counts layer selections per slot.
func LayerSelections() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wms_layer_selections_total",
			Help: "Total number of layer selections",
		},
		[]string{"slot"},
	)
}

// FetchResult maps a fetch outcome to its label.
func FetchResult(err error, unauthorized bool) string {
	switch {
	case err == nil:
		return ResultOK
	case unauthorized:
		return ResultUnauthorized
	default:
		return ResultError
	}
}
