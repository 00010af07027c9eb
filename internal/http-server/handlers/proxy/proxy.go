// Package proxyhandler relays backend streams and downloads through the
// dashboard origin.
package proxyhandler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zanzhit/flameguard/internal/backend"
	"github.com/zanzhit/flameguard/internal/http-server/handlers"
	"github.com/zanzhit/flameguard/internal/lib/api/response"
	"github.com/zanzhit/flameguard/internal/lib/sl"
)

const chunkSize = 32 * 1024

var passHeaders = []string{"Content-Type", "Content-Length", "Content-Disposition", "Cache-Control", "Last-Modified"}

type Source interface {
	Open(ctx context.Context, rawURL string) (*http.Response, error)
}

type Links interface {
	RealtimeFeed() string
	VODFeed() string
	ProcessedVideo() string
	DetectionLog() string
	Image(imagePath string) string
	PastVideo(videoPath string) string
	PastLog(csvPath string) string
}

type ProxyHandler struct {
	log   *slog.Logger
	src   Source
	links Links
}

func New(log *slog.Logger, src Source, links Links) *ProxyHandler {
	return &ProxyHandler{
		log:   log,
		src:   src,
		links: links,
	}
}

func (h *ProxyHandler) RealtimeFeed(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, h.links.RealtimeFeed())
}

func (h *ProxyHandler) VODFeed(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, h.links.VODFeed())
}

func (h *ProxyHandler) ProcessedVideo(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, h.links.ProcessedVideo())
}

func (h *ProxyHandler) DetectionLog(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, h.links.DetectionLog())
}

func (h *ProxyHandler) Image(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, h.links.Image(chi.URLParam(r, "filename")))
}

func (h *ProxyHandler) PastVideo(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, h.links.PastVideo(chi.URLParam(r, "*")))
}

func (h *ProxyHandler) PastLog(w http.ResponseWriter, r *http.Request) {
	h.relay(w, r, h.links.PastLog(chi.URLParam(r, "*")))
}

// relay copies the upstream response, flushing after every chunk so MJPEG
// frames reach the browser as they arrive.
func (h *ProxyHandler) relay(w http.ResponseWriter, r *http.Request, target string) {
	const op = "handlers.proxy.relay"

	log := h.log.With(
		slog.String("op", op),
		slog.String("target", target),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	resp, err := h.src.Open(r.Context(), target)
	if err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) {
			log.Warn("backend refused request", slog.Int("status", se.Code))

			msg := se.Message
			if msg == "" {
				msg = http.StatusText(se.Code)
			}

			handlers.Error(w, r, se.Code, response.Error(msg, middleware.GetReqID(r.Context())))

			return
		}

		log.Error("failed to reach backend", sl.Err(err))

		handlers.Error(w, r, http.StatusBadGateway, response.Error("backend unavailable", middleware.GetReqID(r.Context())))

		return
	}
	defer resp.Body.Close()

	for _, k := range passHeaders {
		if v := resp.Header.Get(k); v != "" {
			w.Header().Set(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, chunkSize)

	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				log.Debug("client went away", sl.Err(werr))
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}

		if rerr != nil {
			if !errors.Is(rerr, io.EOF) && r.Context().Err() == nil {
				log.Warn("upstream stream ended with error", sl.Err(rerr))
			}
			return
		}
	}
}
