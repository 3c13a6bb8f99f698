package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.ObserveToggle("metro", true)
	c.ObserveToggle("metro", true)
	c.ObservePointer("enter", 3)
	c.ObservePointer("leave", -1)
	c.SetSessions(2)

	if got := testutil.ToFloat64(c.LayerToggles.WithLabelValues("metro", "on")); got != 2 {
		t.Fatalf("toggles_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.PointerEvents.WithLabelValues("leave")); got != 1 {
		t.Fatalf("pointer_events_total{leave} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.ActiveSessions); got != 2 {
		t.Fatalf("sessions = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(c.PopupStations); got != 1 {
		t.Fatalf("popup histogram series = %d", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveToggle("lrt", false)
	c.ObservePointer("move", 1)
	c.SetSessions(1)
	h := c.Middleware(http.NotFoundHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRegisterTwiceReuses(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := New(reg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(reg)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	if a.LayerToggles != b.LayerToggles {
		t.Fatal("expected the existing collector to be reused")
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatal(err)
	}
	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))

	if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "418")); got != 1 {
		t.Fatalf("requests_total = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "isochrone_http_requests_total") {
		t.Fatalf("metrics output missing request counter:\n%s", rec.Body.String())
	}
}
