package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zanzhit/flameguard/internal/domain/errs"
	"github.com/zanzhit/flameguard/internal/domain/models"
)

func newTestClient(t *testing.T, h http.Handler, timeout time.Duration, opts ...Option) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.URL, timeout, opts...)
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}

func TestStartWebcam(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathStartWebcam, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		writeJSON(w, http.StatusOK, `{"status":"Webcam started successfully"}`)
	})

	c := newTestClient(t, mux, time.Second)

	reply, err := c.StartWebcam(context.Background())
	if err != nil {
		t.Fatalf("StartWebcam: %v", err)
	}
	if reply.Status != "Webcam started successfully" {
		t.Errorf("unexpected status %q", reply.Status)
	}
	if !reply.Truthy {
		t.Error("expected truthy reply")
	}
}

func TestStopWebcamTruthiness(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{`{"status":"Webcam stopped successfully"}`, true},
		{`{}`, true},
		{`true`, true},
		{`false`, false},
		{`null`, false},
		{`0`, false},
		{`""`, false},
		{``, false},
	}

	for _, tc := range cases {
		body, want := tc.body, tc.want
		mux := http.NewServeMux()
		mux.HandleFunc(PathStopWebcam, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, body)
		})

		c := newTestClient(t, mux, time.Second)

		reply, err := c.StopWebcam(context.Background())
		if err != nil {
			t.Fatalf("StopWebcam(%q): %v", body, err)
		}
		if reply.Truthy != want {
			t.Errorf("body %q: truthy = %v, want %v", body, reply.Truthy, want)
		}
	}
}

func TestStatusError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathFireLogs, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error":"Failed to fetch logs"}`)
	})

	c := newTestClient(t, mux, time.Second)

	_, err := c.FireLogs(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errs.ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if statusErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", statusErr.Code)
	}
	if statusErr.Message != "Failed to fetch logs" {
		t.Errorf("unexpected message %q", statusErr.Message)
	}
}

func TestTransportError(t *testing.T) {
	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), "http://127.0.0.1:1", time.Second)

	_, err := c.StartWebcam(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, errs.ErrUnexpectedStatus) {
		t.Error("transport error must not look like a status error")
	}
}

func TestLogsMissingField(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathFireLogs, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	mux.HandleFunc(PathVideoLogs, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"logs":null}`)
	})

	c := newTestClient(t, mux, time.Second)

	fire, err := c.FireLogs(context.Background())
	if err != nil {
		t.Fatalf("FireLogs: %v", err)
	}
	if fire == nil || len(fire) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", fire)
	}

	video, err := c.VideoLogs(context.Background())
	if err != nil {
		t.Fatalf("VideoLogs: %v", err)
	}
	if video == nil || len(video) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", video)
	}
}

func TestFireLogsDecode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathFireLogs, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"logs":[{"id":1,"timestamp":"2024-01-01T00:00:00Z","confidence":0.92,"image_path":"a/b/c.jpg"}]}`)
	})

	c := newTestClient(t, mux, time.Second)

	logs, err := c.FireLogs(context.Background())
	if err != nil {
		t.Fatalf("FireLogs: %v", err)
	}

	want := models.FireLog{ID: 1, Timestamp: "2024-01-01T00:00:00Z", Confidence: 0.92, ImagePath: "a/b/c.jpg"}
	if len(logs) != 1 || logs[0] != want {
		t.Errorf("unexpected logs %+v", logs)
	}
}

func TestBoundedCallTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	mux := http.NewServeMux()
	mux.HandleFunc(PathVideoLogs, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	c := newTestClient(t, mux, 50*time.Millisecond)

	start := time.Now()
	_, err := c.VideoLogs(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("call was not bounded by the client timeout")
	}
}

func TestUploadVideo(t *testing.T) {
	payload := strings.Repeat("frame-data", 1000)

	mux := http.NewServeMux()
	mux.HandleFunc(PathUploadVOD, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			writeJSON(w, http.StatusBadRequest, `{"error":"No file part in the request"}`)
			return
		}
		defer file.Close()

		if header.Filename != "clip.mp4" {
			t.Errorf("unexpected filename %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "video/mp4" {
			t.Errorf("unexpected part content type %q", ct)
		}

		data, _ := io.ReadAll(file)
		if string(data) != payload {
			t.Errorf("payload mismatch: got %d bytes", len(data))
		}

		writeJSON(w, http.StatusOK, `{"status":"success","message":"File uploaded successfully"}`)
	})

	c := newTestClient(t, mux, time.Second)

	info := models.FileInfo{Name: "clip.mp4", Size: int64(len(payload)), ContentType: "video/mp4"}

	ack, err := c.UploadVideo(context.Background(), info, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("UploadVideo: %v", err)
	}
	if ack.Status != "success" {
		t.Errorf("unexpected ack %+v", ack)
	}
}

func TestUploadVideoRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathUploadVOD, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusBadRequest, `{"error":"File type not allowed"}`)
	})

	c := newTestClient(t, mux, time.Second)

	_, err := c.UploadVideo(context.Background(), models.FileInfo{Name: "x.mkv", ContentType: "video/mp4"}, strings.NewReader("x"))
	if !errors.Is(err, errs.ErrUnexpectedStatus) {
		t.Fatalf("expected status error, got %v", err)
	}
}

func mjpegHandler(frames int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		for i := 0; i < frames; i++ {
			fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\n%s\r\n", []byte{0xFF, 0xD8, byte(i), 0xFF, 0xD9})
		}
	}
}

func TestDrainFeed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathVODFeed, mjpegHandler(5))

	c := newTestClient(t, mux, time.Second)

	var mu sync.Mutex
	seen := 0

	frames, err := c.DrainFeed(context.Background(), c.Links().VODFeed(), func(n int) {
		mu.Lock()
		seen = n
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("DrainFeed: %v", err)
	}
	if frames != 5 {
		t.Errorf("expected 5 frames, got %d", frames)
	}
	if seen != 5 {
		t.Errorf("expected callback to see 5 frames, got %d", seen)
	}
}

func TestDrainFeedSingleUnterminatedFrame(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathVODFeed, mjpegHandler(1))

	c := newTestClient(t, mux, time.Second)

	calls := 0
	frames, err := c.DrainFeed(context.Background(), c.Links().VODFeed(), func(int) { calls++ })
	if err != nil {
		t.Fatalf("DrainFeed: %v", err)
	}
	if frames != 1 {
		t.Errorf("expected 1 frame, got %d", frames)
	}
	if calls != 1 {
		t.Errorf("expected 1 callback, got %d", calls)
	}
}

func TestDrainFeedPlainReply(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathVODFeed, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "No video uploaded yet.")
	})

	c := newTestClient(t, mux, time.Second)

	frames, err := c.DrainFeed(context.Background(), c.Links().VODFeed(), nil)
	if err != nil {
		t.Fatalf("DrainFeed: %v", err)
	}
	if frames != 0 {
		t.Errorf("expected 0 frames, got %d", frames)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveBackendRequest(op, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, op+":"+outcome)
}

func TestObserver(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathStartWebcam, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"Webcam already running"}`)
	})
	mux.HandleFunc(PathStopWebcam, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{}`)
	})

	obs := &recordingObserver{}
	c := newTestClient(t, mux, time.Second, WithObserver(obs))

	_, _ = c.StartWebcam(context.Background())
	_, _ = c.StopWebcam(context.Background())

	want := []string{"backend.StartWebcam:ok", "backend.StopWebcam:status"}
	if len(obs.outcomes) != len(want) {
		t.Fatalf("expected %v, got %v", want, obs.outcomes)
	}
	for i := range want {
		if obs.outcomes[i] != want[i] {
			t.Errorf("outcome %d: expected %s, got %s", i, want[i], obs.outcomes[i])
		}
	}
}
