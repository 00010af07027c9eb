package eventshandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/lib/sl"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Subscriber interface {
	Subscribe() (<-chan models.Event, func())
}

type EventsHandler struct {
	log *slog.Logger
	hub Subscriber
}

func New(log *slog.Logger, hub Subscriber) *EventsHandler {
	return &EventsHandler{
		log: log,
		hub: hub,
	}
}

// Stream upgrades to a websocket and pushes every published event as JSON
// until the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.events.Stream"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", sl.Err(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Debug("event subscriber connected")

	for {
		select {
		case <-gone:
			log.Debug("event subscriber disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.Warn("websocket write failed", sl.Err(err))
				return
			}
		}
	}
}
