package history

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/services/collection"
)

const (
	FireCollection  = "fire"
	VideoCollection = "video"

	FireFailure  = "Failed to fetch fire logs. Is the backend server running?"
	VideoFailure = "Failed to fetch video logs. Is the backend server running?"
)

type Backend interface {
	FireLogs(ctx context.Context) ([]models.FireLog, error)
	VideoLogs(ctx context.Context) ([]models.VideoLog, error)
}

// Service holds the two log collections shown on the history page. They are
// independent and share nothing but the backend.
type Service struct {
	log   *slog.Logger
	Fire  *collection.Collection[models.FireLog]
	Video *collection.Collection[models.VideoLog]

	loadTimeout time.Duration
	once        sync.Once
}

type Option func(*Service)

// WithLoadTimeout bounds the first automatic load, which outlives the request
// that triggered it.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Service) { s.loadTimeout = d }
}

func New(log *slog.Logger, backend Backend, observer collection.Observer, opts ...Option) *Service {
	s := &Service{
		log:   log,
		Fire:  collection.New(log, FireCollection, FireFailure, backend.FireLogs, observer),
		Video: collection.New(log, VideoCollection, VideoFailure, backend.VideoLogs, observer),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// EnsureLoaded refreshes both collections the first time it is called and is a
// no-op afterwards. The load is detached from ctx's cancellation so a client
// that goes away does not spoil it for everyone else.
func (s *Service) EnsureLoaded(ctx context.Context) {
	s.once.Do(func() {
		ctx := context.WithoutCancel(ctx)
		if s.loadTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
			defer cancel()
		}

		_ = s.RefreshAll(ctx)
	})
}

// RefreshAll refreshes both collections concurrently and joins their errors.
func (s *Service) RefreshAll(ctx context.Context) error {
	const op = "services.history.RefreshAll"

	s.log.Debug("refreshing all collections", slog.String("op", op))

	var (
		wg       sync.WaitGroup
		fireErr  error
		videoErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		fireErr = s.Fire.Refresh(ctx)
	}()
	go func() {
		defer wg.Done()
		videoErr = s.Video.Refresh(ctx)
	}()
	wg.Wait()

	return errors.Join(fireErr, videoErr)
}

func (s *Service) FireSnapshot() collection.Snapshot[models.FireLog] {
	return s.Fire.Snapshot()
}

func (s *Service) VideoSnapshot() collection.Snapshot[models.VideoLog] {
	return s.Video.Snapshot()
}
