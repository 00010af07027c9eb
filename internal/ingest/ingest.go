package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zanzhit/flameguard/internal/domain/errs"
	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/lib/sl"
	"github.com/zanzhit/flameguard/internal/services/submission"
)

type Flow interface {
	SelectFile(info models.FileInfo, src submission.Source) (models.Notification, error)
	Submit(ctx context.Context) (models.Notification, error)
	Wait(ctx context.Context) error
	Reset() error
}

// Result is the outcome of one ingested file.
type Result struct {
	Path         string
	Notification models.Notification
	Err          error
}

// Ingester submits files one at a time. A file is selected, uploaded and
// followed to completion before the next one is taken.
type Ingester struct {
	log  *slog.Logger
	flow Flow
}

func New(log *slog.Logger, flow Flow) *Ingester {
	return &Ingester{
		log:  log,
		flow: flow,
	}
}

// Run consumes files until the channel is closed or ctx is done. Every file
// produces exactly one Result on the returned channel.
func (i *Ingester) Run(ctx context.Context, files <-chan string) <-chan Result {
	results := make(chan Result)

	go func() {
		defer close(results)

		for {
			select {
			case <-ctx.Done():
				return
			case path, ok := <-files:
				if !ok {
					return
				}

				res := i.Handle(ctx, path)

				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return results
}

// Handle submits a single file and waits for its analysis.
func (i *Ingester) Handle(ctx context.Context, path string) Result {
	const op = "ingest.Handle"

	log := i.log.With(slog.String("op", op), slog.String("path", path))

	res := Result{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", op, err)
		return res
	}

	file := models.FileInfo{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: submission.ContentTypeFor(path),
	}

	n, err := i.flow.SelectFile(file, submission.FileSource(path))
	if err != nil {
		log.Info("file skipped", sl.Err(err))

		res.Notification = n
		res.Err = fmt.Errorf("%s: %w", op, err)
		return res
	}

	defer func() {
		if err := i.flow.Reset(); err != nil && !errors.Is(err, errs.ErrUploadInProgress) {
			log.Warn("failed to reset flow", sl.Err(err))
		}
	}()

	n, err = i.flow.Submit(ctx)
	res.Notification = n
	if err != nil {
		log.Error("failed to submit file", sl.Err(err))

		res.Err = fmt.Errorf("%s: %w", op, err)
		return res
	}

	if err := i.flow.Wait(ctx); err != nil {
		log.Error("file was not processed", sl.Err(err))

		res.Notification = models.Failure("Processing did not complete", "The backend did not report a finished analysis")
		res.Err = fmt.Errorf("%s: %w", op, err)
		return res
	}

	log.Info("file processed")

	res.Notification = models.Success("Processing complete", "Video analysis finished successfully")

	return res
}
