package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/flameguard/internal/backend"
	"github.com/zanzhit/flameguard/internal/config"
	"github.com/zanzhit/flameguard/internal/events"
	authhandler "github.com/zanzhit/flameguard/internal/http-server/handlers/auth"
	eventshandler "github.com/zanzhit/flameguard/internal/http-server/handlers/events"
	logshandler "github.com/zanzhit/flameguard/internal/http-server/handlers/logs"
	pageshandler "github.com/zanzhit/flameguard/internal/http-server/handlers/pages"
	proxyhandler "github.com/zanzhit/flameguard/internal/http-server/handlers/proxy"
	videohandler "github.com/zanzhit/flameguard/internal/http-server/handlers/video"
	webcamhandler "github.com/zanzhit/flameguard/internal/http-server/handlers/webcam"
	authmiddleware "github.com/zanzhit/flameguard/internal/http-server/middleware/auth"
	"github.com/zanzhit/flameguard/internal/http-server/middleware/logger"
	"github.com/zanzhit/flameguard/internal/kafka"
	"github.com/zanzhit/flameguard/internal/lib/sl"
	"github.com/zanzhit/flameguard/internal/metrics"
	"github.com/zanzhit/flameguard/internal/services/archive"
	authservice "github.com/zanzhit/flameguard/internal/services/auth"
	"github.com/zanzhit/flameguard/internal/services/collection"
	"github.com/zanzhit/flameguard/internal/services/history"
	"github.com/zanzhit/flameguard/internal/services/submission"
	"github.com/zanzhit/flameguard/internal/services/webcam"
	"github.com/zanzhit/flameguard/internal/storage/memory"
	"github.com/zanzhit/flameguard/internal/storage/postgres"
	submissionstorage "github.com/zanzhit/flameguard/internal/storage/postgres/submissions"
	"github.com/zanzhit/flameguard/internal/storage/s3"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type journal interface {
	submission.Journal
	videohandler.Journal
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting flameguard dashboard", slog.String("env", cfg.Env), slog.String("backend", cfg.Backend.BaseURL))
	log.Debug("debug messages are enabled")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := events.New(log)

	var (
		m             *metrics.Metrics
		backendOpts   []backend.Option
		refreshObs    collection.Observer
		webcamObs     webcam.StateObserver
		submissionOpt []submission.Option
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.WatchHub(hub)

		backendOpts = append(backendOpts, backend.WithObserver(m))
		refreshObs = m
		webcamObs = m
		submissionOpt = append(submissionOpt, submission.WithObserver(m))
	}

	client := backend.New(log, cfg.Backend.BaseURL, cfg.Backend.Timeout, backendOpts...)
	links := client.Links()

	var store journal = memory.New()
	if cfg.DB.Enabled {
		db, err := postgres.New(ctx, cfg.DB)
		if err != nil {
			log.Error("failed to connect to postgres", sl.Err(err))
			os.Exit(1)
		}
		defer db.Close()

		store = submissionstorage.New(db)
	}

	if cfg.Archive.Enabled {
		objects, err := s3.NewMinioClient(cfg.Archive.Endpoint, cfg.Archive.AccessKey, cfg.Archive.SecretKey, cfg.Archive.Bucket, cfg.Archive.UseSSL)
		if err != nil {
			log.Error("failed to create archive client", sl.Err(err))
			os.Exit(1)
		}

		if err := objects.EnsureBucket(ctx); err != nil {
			log.Error("failed to prepare archive bucket", sl.Err(err))
			os.Exit(1)
		}

		submissionOpt = append(submissionOpt, submission.WithArchiver(archive.New(log, client, links, objects)))
	}

	if cfg.Events.Kafka.Enabled {
		producer, err := kafka.NewProducer(log, cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic)
		if err != nil {
			log.Error("failed to create kafka producer", sl.Err(err))
			os.Exit(1)
		}
		defer producer.Close()

		evs, unsubscribe := hub.Subscribe()
		defer unsubscribe()

		go kafka.Forward(ctx, log, evs, producer)
	}

	webcamController := webcam.New(log, client, links.RealtimeFeed(), hub, webcamObs)
	logs := history.New(log, client, refreshObs, history.WithLoadTimeout(cfg.Backend.Timeout))

	submissionOpt = append(submissionOpt, submission.WithJournal(store), submission.WithPublisher(hub))
	flow := submission.New(log, client, links, submission.Options{
		PollInterval:      cfg.Submission.PollInterval,
		ProcessingTimeout: cfg.Submission.ProcessingTimeout,
		DriveFeed:         cfg.Submission.DriveFeed,
	}, submissionOpt...)
	defer flow.Close()

	pages, err := pageshandler.New(log, webcamController, flow, logs, links)
	if err != nil {
		log.Error("failed to parse page templates", sl.Err(err))
		os.Exit(1)
	}

	webcamHandler := webcamhandler.New(log, webcamController)
	videoHandler := videohandler.New(log, flow, store, cfg.Submission.SpoolDir)
	fireHandler := logshandler.New(log, logs.Fire, logs, logshandler.FireView(links), hub)
	videoLogsHandler := logshandler.New(log, logs.Video, logs, logshandler.VideoView(links), hub)
	proxyHandler := proxyhandler.New(log, client, links)
	eventsHandler := eventshandler.New(log, hub)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(logger.New(log))
	router.Use(middleware.Recoverer)

	router.NotFound(pages.NotFound)

	router.Get("/", pages.Home)
	router.Get("/realtime-alert", pages.Realtime)
	router.Get("/video-alert", pages.Video)
	router.Get("/historical-logs", pages.History)
	router.Get("/contact", pages.Contact)
	router.Handle("/static/*", pageshandler.Static())

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	if m != nil {
		router.Handle("/metrics", m.Handler())
	}

	router.Get("/ws", eventsHandler.Stream)

	router.Get("/feeds/realtime", proxyHandler.RealtimeFeed)
	router.Get("/feeds/vod", proxyHandler.VODFeed)
	router.Get("/images/{filename}", proxyHandler.Image)
	router.Get("/downloads/processed-video", proxyHandler.ProcessedVideo)
	router.Get("/downloads/detection-log", proxyHandler.DetectionLog)
	router.Get("/downloads/past-video/*", proxyHandler.PastVideo)
	router.Get("/downloads/past-log/*", proxyHandler.PastLog)

	router.Route("/api", func(r chi.Router) {
		if cfg.Auth.Enabled {
			if cfg.Auth.Secret == "" {
				log.Error("AUTH_SECRET is required when auth is enabled")
				os.Exit(1)
			}

			authService := authservice.New(log, authservice.NewDirectory(cfg.Auth.Operators), cfg.Auth.TokenTTL, cfg.Auth.Secret)
			r.Post("/auth/login", authhandler.New(log, authService, cfg.Auth.TokenTTL).Login)
		}

		r.Get("/webcam", webcamHandler.State)
		r.Get("/video", videoHandler.State)
		r.Get("/video/submissions", videoHandler.Submissions)
		r.Get("/logs/fire", fireHandler.List)
		r.Get("/logs/video", videoLogsHandler.List)

		r.Group(func(r chi.Router) {
			if cfg.Auth.Enabled {
				r.Use(authmiddleware.JWTAuth(cfg.Auth.Secret))
			}

			r.Post("/webcam/start", webcamHandler.Start)
			r.Post("/webcam/stop", webcamHandler.Stop)
			r.Post("/video/select", videoHandler.Select)
			r.Post("/video/submit", videoHandler.Submit)
			r.Post("/video/reset", videoHandler.Reset)
			r.Post("/logs/fire/refresh", fireHandler.Refresh)
			r.Post("/logs/video/refresh", videoLogsHandler.Refresh)
		})
	})

	// No write timeout: feeds and downloads stream for as long as the client reads.
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:       cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", sl.Err(err))
			stop()
		}
	}()

	log.Info("server started", slog.String("address", cfg.Address))

	<-ctx.Done()

	log.Info("stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop server", sl.Err(err))
	}

	log.Info("server stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
