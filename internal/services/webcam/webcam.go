package webcam

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zanzhit/flameguard/internal/domain/constants"
	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/lib/sl"
)

type Backend interface {
	StartWebcam(ctx context.Context) (models.WebcamReply, error)
	StopWebcam(ctx context.Context) (models.WebcamReply, error)
}

type Publisher interface {
	Publish(models.Event)
}

type StateObserver interface {
	SetWebcamRunning(running bool)
}

// Controller mirrors the backend's webcam session as a running flag. Failed
// calls leave the flag untouched and are never retried.
type Controller struct {
	log       *slog.Logger
	backend   Backend
	feedURL   string
	publisher Publisher
	observer  StateObserver

	mu       sync.Mutex
	running  bool
	inflight int
}

func New(log *slog.Logger, backend Backend, feedURL string, publisher Publisher, observer StateObserver) *Controller {
	return &Controller{
		log:       log,
		backend:   backend,
		feedURL:   feedURL,
		publisher: publisher,
		observer:  observer,
	}
}

func (c *Controller) Start(ctx context.Context) (models.Notification, error) {
	const op = "services.webcam.Start"

	log := c.log.With(slog.String("op", op))

	c.begin()
	defer c.end()

	log.Info("starting webcam")

	reply, err := c.backend.StartWebcam(ctx)
	if err != nil {
		log.Error("failed to start webcam", sl.Err(err))

		n := models.Failure("Failed to start webcam. Is the backend server running?", "")
		c.publish(n)

		return n, fmt.Errorf("%s: %w", op, err)
	}

	if reply.Status == constants.WebcamAlreadyRunning {
		log.Info("webcam already running", slog.String("status", reply.Status))

		n := models.Info("Webcam already running", "")
		c.publish(n)

		return n, nil
	}

	c.setRunning(true)

	n := models.Success("Webcam started", "Realtime fire detection is now active")
	c.publish(n)

	return n, nil
}

func (c *Controller) Stop(ctx context.Context) (models.Notification, error) {
	const op = "services.webcam.Stop"

	log := c.log.With(slog.String("op", op))

	c.begin()
	defer c.end()

	log.Info("stopping webcam")

	reply, err := c.backend.StopWebcam(ctx)
	if err != nil {
		log.Error("failed to stop webcam", sl.Err(err))

		n := models.Failure("Failed to stop webcam", "")
		c.publish(n)

		return n, fmt.Errorf("%s: %w", op, err)
	}

	if !reply.Truthy {
		log.Warn("backend returned an empty stop reply")

		return models.Notification{}, nil
	}

	c.setRunning(false)

	n := models.Success("Webcam stopped", "Realtime fire detection has been paused")
	c.publish(n)

	return n, nil
}

// FeedURL is returned unconditionally; it is only meaningful while running.
func (c *Controller) FeedURL() string {
	return c.feedURL
}

func (c *Controller) State() models.WebcamState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stateLocked()
}

func (c *Controller) stateLocked() models.WebcamState {
	st := models.WebcamState{Running: c.running, Busy: c.inflight > 0}
	if c.running {
		st.FeedURL = c.feedURL
	}

	return st
}

// begin and end bracket one backend call. Busy holds while any call is in
// flight.
func (c *Controller) begin() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inflight++
}

func (c *Controller) end() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inflight--
}

func (c *Controller) setRunning(running bool) {
	c.mu.Lock()
	c.running = running
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.SetWebcamRunning(running)
	}
}

func (c *Controller) publish(n models.Notification) {
	if c.publisher == nil {
		return
	}

	st := c.State()
	c.publisher.Publish(models.Event{
		Kind:         models.EventWebcam,
		Notification: &n,
		Webcam:       &st,
	})
}
