package webcamhandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/lib/sl"
)

type Webcam interface {
	Start(ctx context.Context) (models.Notification, error)
	Stop(ctx context.Context) (models.Notification, error)
	State() models.WebcamState
}

type Reply struct {
	Notification *models.Notification `json:"notification,omitempty"`
	Webcam       models.WebcamState   `json:"webcam"`
	Status       string               `json:"status"`
	RequestID    string               `json:"request_id,omitempty"`
}

type WebcamHandler struct {
	log    *slog.Logger
	webcam Webcam
}

func New(
	log *slog.Logger,
	webcam Webcam,
) *WebcamHandler {
	return &WebcamHandler{
		log:    log,
		webcam: webcam,
	}
}

func (h *WebcamHandler) State(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, reply(h.webcam.State(), nil))
}

func (h *WebcamHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, "handlers.webcam.Start", h.webcam.Start)
}

func (h *WebcamHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, "handlers.webcam.Stop", h.webcam.Stop)
}

func (h *WebcamHandler) call(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context) (models.Notification, error)) {
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	n, err := fn(r.Context())
	if err != nil {
		log.Warn("webcam call failed", sl.Err(err))

		res := reply(h.webcam.State(), &n)
		res.RequestID = middleware.GetReqID(r.Context())

		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, res)

		return
	}

	var np *models.Notification
	if n.Title != "" {
		np = &n
	}

	render.JSON(w, r, reply(h.webcam.State(), np))
}

func reply(st models.WebcamState, n *models.Notification) Reply {
	status := "Inactive"
	if st.Running {
		status = "Active"
	}

	return Reply{Notification: n, Webcam: st, Status: status}
}
