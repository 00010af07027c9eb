package pageshandler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zanzhit/flameguard/internal/backend"
	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/services/collection"
	"github.com/zanzhit/flameguard/internal/services/submission"
)

type fakeWebcam struct{ running bool }

func (f fakeWebcam) State() models.WebcamState { return models.WebcamState{Running: f.running} }

type fakeFlow struct{ state models.SubmissionState }

func (f fakeFlow) State() models.SubmissionState   { return f.state }
func (f fakeFlow) Links() submission.ArtifactLinks { return submission.ArtifactLinks{} }

type fakeHistory struct {
	loaded int
	fire   collection.Snapshot[models.FireLog]
}

func (h *fakeHistory) EnsureLoaded(ctx context.Context) { h.loaded++ }

func (h *fakeHistory) FireSnapshot() collection.Snapshot[models.FireLog] { return h.fire }

func (h *fakeHistory) VideoSnapshot() collection.Snapshot[models.VideoLog] {
	return collection.Snapshot[models.VideoLog]{Items: []models.VideoLog{}}
}

func newPages(t *testing.T, webcam Webcam, flow Flow, history History) *PagesHandler {
	t.Helper()

	h, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), webcam, flow, history, backend.NewLinks("http://backend:5000"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return h
}

func get(h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPages(t *testing.T) {
	history := &fakeHistory{fire: collection.Snapshot[models.FireLog]{
		Items: []models.FireLog{{ID: 1, Timestamp: "2024-01-01T00:00:00Z", Confidence: 0.92, ImagePath: "a/b/c.jpg"}},
	}}
	file := models.FileInfo{Name: "forest.mp4", Size: 1536, ContentType: "video/mp4"}
	h := newPages(t, fakeWebcam{running: true}, fakeFlow{state: models.SubmissionState{File: &file, FileSize: "1.5 KB"}}, history)

	cases := []struct {
		name    string
		handler http.HandlerFunc
		path    string
		status  int
		want    []string
	}{
		{"home", h.Home, "/", http.StatusOK, []string{"CNN-Based Wildfire Detection", "YOLOv8"}},
		{"realtime", h.Realtime, "/realtime-alert", http.StatusOK, []string{"Active", "/feeds/realtime", "0.25", "5 minutes", "30 seconds"}},
		{"video", h.Video, "/video-alert", http.StatusOK, []string{"forest.mp4 (1.5 KB)", "Ready", "Fire, Smoke, Other"}},
		{"history", h.History, "/historical-logs", http.StatusOK, []string{"92.0%", "Jan 01, 2024, 12:00:00 AM", "http://backend:5000/images/c.jpg", "No video processing logs found"}},
		{"contact", h.Contact, "/contact", http.StatusOK, []string{"contact@flameguard.ai"}},
		{"not found", h.NotFound, "/nope", http.StatusNotFound, []string{"Page not found"}},
	}

	for _, tc := range cases {
		rec := get(tc.handler, tc.path)
		if rec.Code != tc.status {
			t.Errorf("%s: status %d, want %d", tc.name, rec.Code, tc.status)
		}

		body := rec.Body.String()
		for _, w := range tc.want {
			if !strings.Contains(body, w) {
				t.Errorf("%s: body missing %q", tc.name, w)
			}
		}
	}

	if history.loaded != 1 {
		t.Errorf("history page must load logs, EnsureLoaded called %d times", history.loaded)
	}
}

func TestHistoryShowsError(t *testing.T) {
	history := &fakeHistory{fire: collection.Snapshot[models.FireLog]{
		Items: []models.FireLog{},
		Error: "Failed to fetch fire logs. Is the backend server running?",
	}}
	h := newPages(t, fakeWebcam{}, fakeFlow{}, history)

	body := get(h.History, "/historical-logs").Body.String()
	if !strings.Contains(body, "Failed to fetch fire logs. Is the backend server running?") {
		t.Error("expected the fire log error to be shown")
	}
}

func TestStatic(t *testing.T) {
	rec := httptest.NewRecorder()
	Static().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/dashboard.js", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "WebSocket") {
		t.Errorf("unexpected static response %d", rec.Code)
	}
}
