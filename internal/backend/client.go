// Package backend is the HTTP client of the detection backend. It covers every
// endpoint the dashboard uses and builds the stream and download links the
// browser is pointed at.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zanzhit/flameguard/internal/domain/errs"
	"github.com/zanzhit/flameguard/internal/lib/sl"
)

const (
	PathStartWebcam            = "/start_webcam"
	PathStopWebcam             = "/stop_webcam"
	PathRealtimeFeed           = "/realtime_video_feed"
	PathUploadVOD              = "/upload_vod"
	PathVODFeed                = "/vod_video_feed"
	PathDownloadProcessedVideo = "/download_processed_video"
	PathDownloadDetectionLog   = "/download_detection_log"
	PathFireLogs               = "/get_fire_logs"
	PathVideoLogs              = "/get_video_logs"
	PathImages                 = "/images/"
	PathDownloadPastVideo      = "/download_past_video/"
	PathDownloadPastLog        = "/download_past_log/"
)

const (
	OutcomeOK        = "ok"
	OutcomeStatus    = "status"
	OutcomeTransport = "transport"
)

const maxErrorBody = 512

// Observer receives one call per finished backend request.
type Observer interface {
	ObserveBackendRequest(op, outcome string, elapsed time.Duration)
}

type Client struct {
	log      *slog.Logger
	links    *Links
	http     *http.Client
	stream   *http.Client
	timeout  time.Duration
	observer Observer
}

type Option func(*Client)

// WithHTTPClient replaces the client used for both bounded calls and streams.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
		c.stream = hc
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New creates a client for the backend at baseURL. JSON calls that do not carry
// a file are bounded by timeout; a zero timeout leaves them bounded only by ctx.
func New(log *slog.Logger, baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		log:     log,
		links:   NewLinks(baseURL),
		http:    &http.Client{},
		stream:  &http.Client{},
		timeout: timeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Links() *Links {
	return c.links
}

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Op      string
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: server responded with status %d: %s", e.Op, e.Code, e.Message)
	}

	return fmt.Sprintf("%s: server responded with status %d", e.Op, e.Code)
}

func (e *StatusError) Unwrap() error {
	return errs.ErrUnexpectedStatus
}

func newStatusError(op string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(body))

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	return &StatusError{
		Op:      op,
		Code:    resp.StatusCode,
		Status:  resp.Status,
		Message: msg,
	}
}

// callJSON sends req and decodes a 2xx JSON body into out.
func (c *Client) callJSON(ctx context.Context, op string, req *http.Request, bounded bool, out any) error {
	if bounded && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log := c.log.With(
		slog.String("op", op),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
	)

	start := time.Now()

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		c.observe(op, OutcomeTransport, start)

		log.Error("backend request failed", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(op, OutcomeStatus, start)

		statusErr := newStatusError(op, resp)

		log.Error("backend responded with error status", slog.Int("status", resp.StatusCode), sl.Err(statusErr))

		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		c.observe(op, OutcomeTransport, start)

		log.Error("failed to decode backend response", sl.Err(err))

		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	c.observe(op, OutcomeOK, start)

	log.Debug("backend request finished", slog.Duration("elapsed", time.Since(start)))

	return nil
}

// Open issues a GET against a fully built backend URL and returns the live
// response. The caller owns the body.
func (c *Client) Open(ctx context.Context, rawURL string) (*http.Response, error) {
	const op = "backend.Open"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	start := time.Now()

	resp, err := c.stream.Do(req)
	if err != nil {
		c.observe(op, OutcomeTransport, start)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()

		c.observe(op, OutcomeStatus, start)

		return nil, newStatusError(op, resp)
	}

	c.observe(op, OutcomeOK, start)

	return resp, nil
}

func (c *Client) observe(op, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveBackendRequest(op, outcome, time.Since(start))
	}
}
