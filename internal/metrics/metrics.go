// Package metrics exposes Prometheus metrics for map sessions and the HTTP
// surface.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "isochrone"

// Collector bundles the application's metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	LayerToggles    *prometheus.CounterVec
	PointerEvents   *prometheus.CounterVec
	PopupStations   prometheus.Histogram
	ActiveSessions  prometheus.Gauge
	HTTPRequests    *prometheus.CounterVec
	HTTPDurations   *prometheus.HistogramVec
	StationsIndexed prometheus.Gauge
}

// New registers the metrics against reg, defaulting to the global registry
// when nil. Registering twice against the same registry reuses the existing
// collectors.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.LayerToggles, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "layers",
		Name:      "toggles_total",
		Help:      "Layer toggles, labeled by layer key and resulting state.",
	}, []string{"layer", "state"})); err != nil {
		return nil, err
	}
	if c.PointerEvents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "popup",
		Name:      "pointer_events_total",
		Help:      "Pointer events handled, labeled by event.",
	}, []string{"event"})); err != nil {
		return nil, err
	}
	if c.PopupStations, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "popup",
		Name:      "stations",
		Help:      "Stations listed per popup refresh.",
		Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
	})); err != nil {
		return nil, err
	}
	if c.ActiveSessions, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Map sessions currently held in memory.",
	})); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests processed.",
	}, []string{"method", "status"})); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method"})); err != nil {
		return nil, err
	}
	if c.StationsIndexed, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stations",
		Name:      "indexed",
		Help:      "Stations loaded into the search index.",
	})); err != nil {
		return nil, err
	}
	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveToggle records a layer toggle. A nil collector is a no-op, as are
// the other Observe methods.
func (c *Collector) ObserveToggle(layer string, enabled bool) {
	if c == nil {
		return
	}
	state := "off"
	if enabled {
		state = "on"
	}
	c.LayerToggles.WithLabelValues(layer, state).Inc()
}

// ObservePointer records a pointer event and, for enter and move, the number
// of stations shown.
func (c *Collector) ObservePointer(event string, stations int) {
	if c == nil {
		return
	}
	c.PointerEvents.WithLabelValues(event).Inc()
	if stations >= 0 {
		c.PopupStations.Observe(float64(stations))
	}
}

// SetSessions sets the active session gauge.
func (c *Collector) SetSessions(n int) {
	if c == nil {
		return
	}
	c.ActiveSessions.Set(float64(n))
}

// SetStationsIndexed sets the station index gauge.
func (c *Collector) SetStationsIndexed(n int) {
	if c == nil {
		return
	}
	c.StationsIndexed.Set(float64(n))
}

// Middleware records request counts and durations.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		c.HTTPDurations.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
