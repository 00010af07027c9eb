// Package collection keeps a remotely fetched list together with its loading
// and error flags.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zanzhit/flameguard/internal/lib/sl"
)

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeStale  = "stale"
)

type Fetcher[T any] func(ctx context.Context) ([]T, error)

type Observer interface {
	ObserveRefresh(collection, outcome string)
}

type Snapshot[T any] struct {
	Items   []T    `json:"logs"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// Collection is safe for concurrent use. Overlapping refreshes are neither
// cancelled nor deduplicated; the result of the most recently started refresh
// wins and an older response that arrives later is discarded.
type Collection[T any] struct {
	log        *slog.Logger
	name       string
	failureMsg string
	fetch      Fetcher[T]
	observer   Observer

	mu       sync.Mutex
	items    []T
	errMsg   string
	inflight int
	issued   uint64
	applied  uint64
}

func New[T any](log *slog.Logger, name, failureMsg string, fetch Fetcher[T], observer Observer) *Collection[T] {
	return &Collection[T]{
		log:        log.With(slog.String("collection", name)),
		name:       name,
		failureMsg: failureMsg,
		fetch:      fetch,
		observer:   observer,
		items:      []T{},
	}
}

func (c *Collection[T]) Name() string {
	return c.name
}

// Refresh fetches the collection. On failure the previous items are kept and a
// human-readable error is recorded. The loading flag is released on every path.
func (c *Collection[T]) Refresh(ctx context.Context) error {
	const op = "collection.Refresh"

	log := c.log.With(slog.String("op", op))

	c.mu.Lock()
	c.issued++
	gen := c.issued
	c.inflight++
	c.errMsg = ""
	c.mu.Unlock()

	items, err := c.fetchSafe(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.inflight--

	if gen < c.applied {
		log.Debug("discarding stale response", slog.Uint64("generation", gen), slog.Uint64("applied", c.applied))
		c.observe(OutcomeStale)

		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	}

	c.applied = gen

	if err != nil {
		log.Error("failed to refresh collection", sl.Err(err))

		c.errMsg = c.failureMsg
		c.observe(OutcomeFailed)

		return fmt.Errorf("%s: %w", op, err)
	}

	if items == nil {
		items = []T{}
	}

	c.items = items
	c.errMsg = ""
	c.observe(OutcomeOK)

	log.Debug("collection refreshed", slog.Int("count", len(items)))

	return nil
}

func (c *Collection[T]) fetchSafe(ctx context.Context) (items []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()

	return c.fetch(ctx)
}

func (c *Collection[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]T, len(c.items))
	copy(items, c.items)

	return Snapshot[T]{
		Items:   items,
		Loading: c.inflight > 0,
		Error:   c.errMsg,
	}
}

func (c *Collection[T]) observe(outcome string) {
	if c.observer != nil {
		c.observer.ObserveRefresh(c.name, outcome)
	}
}
