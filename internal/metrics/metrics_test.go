package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type hubStats struct{}

func (hubStats) Subscribers() int { return 2 }
func (hubStats) Dropped() int64   { return 5 }

func TestMetrics(t *testing.T) {
	m := New()
	m.WatchHub(hubStats{})

	m.ObserveBackendRequest("backend.FireLogs", "ok", 10*time.Millisecond)
	m.ObserveBackendRequest("backend.FireLogs", "ok", 20*time.Millisecond)
	m.ObserveRefresh("fire", "failed")
	m.SetWebcamRunning(true)
	m.ObserveSubmission("processed")

	if got := testutil.ToFloat64(m.backendRequests.WithLabelValues("backend.FireLogs", "ok")); got != 2 {
		t.Errorf("backend requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.refreshes.WithLabelValues("fire", "failed")); got != 1 {
		t.Errorf("refreshes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.webcamRunning); got != 1 {
		t.Errorf("webcam running = %v, want 1", got)
	}

	m.SetWebcamRunning(false)
	if got := testutil.ToFloat64(m.webcamRunning); got != 0 {
		t.Errorf("webcam running = %v, want 0", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"flameguard_submissions_total",
		"flameguard_event_subscribers 2",
		"flameguard_events_dropped_total 5",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
