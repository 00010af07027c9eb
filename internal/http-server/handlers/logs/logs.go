package logshandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/samber/lo"

	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/lib/format"
	"github.com/zanzhit/flameguard/internal/services/collection"
)

type Collection[T any] interface {
	Name() string
	Refresh(ctx context.Context) error
	Snapshot() collection.Snapshot[T]
}

type Loader interface {
	EnsureLoaded(ctx context.Context)
}

type Publisher interface {
	Publish(models.Event)
}

type Links interface {
	Image(imagePath string) string
	PastVideo(videoPath string) string
	PastLog(csvPath string) string
}

// LogsHandler serves one log collection and renders each entry with view.
type LogsHandler[T, V any] struct {
	log        *slog.Logger
	collection Collection[T]
	loader     Loader
	view       func(T) V
	publisher  Publisher
}

func New[T, V any](
	log *slog.Logger,
	c Collection[T],
	loader Loader,
	view func(T) V,
	publisher Publisher,
) *LogsHandler[T, V] {
	return &LogsHandler[T, V]{
		log:        log,
		collection: c,
		loader:     loader,
		view:       view,
		publisher:  publisher,
	}
}

func (h *LogsHandler[T, V]) List(w http.ResponseWriter, r *http.Request) {
	if h.loader != nil {
		h.loader.EnsureLoaded(r.Context())
	}

	render.JSON(w, r, h.snapshot())
}

// Refresh always answers 200 with the collection; a failed refresh is reported
// in the snapshot's error field and the previous entries are kept.
func (h *LogsHandler[T, V]) Refresh(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.logs.Refresh"

	log := h.log.With(
		slog.String("op", op),
		slog.String("collection", h.collection.Name()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	err := h.collection.Refresh(r.Context())
	snap := h.snapshot()

	if err != nil {
		log.Warn("refresh failed", slog.String("error", snap.Error))

		if h.publisher != nil && snap.Error != "" {
			n := models.Failure(snap.Error, "")
			h.publisher.Publish(models.Event{Kind: models.EventLogs, Notification: &n})
		}
	}

	render.JSON(w, r, snap)
}

func (h *LogsHandler[T, V]) snapshot() collection.Snapshot[V] {
	return Views(h.collection.Snapshot(), h.view)
}

// Views renders every item of snap with view and keeps its flags.
func Views[T, V any](snap collection.Snapshot[T], view func(T) V) collection.Snapshot[V] {
	return collection.Snapshot[V]{
		Items: lo.Map(snap.Items, func(item T, _ int) V {
			return view(item)
		}),
		Loading: snap.Loading,
		Error:   snap.Error,
	}
}

type FireLogView struct {
	models.FireLog
	Time           string `json:"time"`
	ConfidenceText string `json:"confidence_text"`
	ImageURL       string `json:"image_url"`
}

type VideoLogView struct {
	models.VideoLog
	Time     string `json:"time"`
	VideoURL string `json:"video_url"`
	LogURL   string `json:"log_url"`
}

func FireView(links Links) func(models.FireLog) FireLogView {
	return func(l models.FireLog) FireLogView {
		return FireLogView{
			FireLog:        l,
			Time:           format.Timestamp(l.Timestamp),
			ConfidenceText: format.Confidence(l.Confidence),
			ImageURL:       links.Image(l.ImagePath),
		}
	}
}

func VideoView(links Links) func(models.VideoLog) VideoLogView {
	return func(l models.VideoLog) VideoLogView {
		return VideoLogView{
			VideoLog: l,
			Time:     format.Timestamp(l.Timestamp),
			VideoURL: links.PastVideo(l.VideoPath),
			LogURL:   links.PastLog(l.CSVPath),
		}
	}
}
