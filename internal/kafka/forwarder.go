package kafka

import (
	"context"
	"log/slog"

	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/lib/sl"
)

type Sender interface {
	Send(ev models.Event) error
}

// Forward sends every event from events until the channel closes or ctx is done.
// Failed sends are logged and skipped.
func Forward(ctx context.Context, log *slog.Logger, events <-chan models.Event, sender Sender) {
	const op = "kafka.Forward"

	log = log.With(slog.String("op", op))

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			if err := sender.Send(ev); err != nil {
				log.Error("failed to forward event", slog.String("kind", string(ev.Kind)), sl.Err(err))
			}
		}
	}
}
