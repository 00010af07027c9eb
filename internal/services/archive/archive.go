// Package archive copies the artifacts of a finished submission from the
// backend into object storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/zanzhit/flameguard/internal/backend"
	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/lib/sl"
)

type Source interface {
	Open(ctx context.Context, rawURL string) (*http.Response, error)
}

type Links interface {
	PastVideo(videoPath string) string
	PastLog(csvPath string) string
}

type ObjectStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

type Archiver struct {
	log   *slog.Logger
	src   Source
	links Links
	store ObjectStore
}

func New(log *slog.Logger, src Source, links Links, store ObjectStore) *Archiver {
	return &Archiver{
		log:   log,
		src:   src,
		links: links,
		store: store,
	}
}

// Archive stores the processed video and detection log of vl under the
// submission id. Both artifacts are attempted; the first error is returned.
func (a *Archiver) Archive(ctx context.Context, sub models.Submission, vl models.VideoLog) error {
	const op = "services.archive.Archive"

	log := a.log.With(
		slog.String("op", op),
		slog.String("submission_id", sub.ID),
		slog.Int64("video_log_id", vl.ID),
	)

	var firstErr error

	for _, art := range []struct {
		path string
		url  string
	}{
		{vl.VideoPath, a.links.PastVideo(vl.VideoPath)},
		{vl.CSVPath, a.links.PastLog(vl.CSVPath)},
	} {
		if art.path == "" {
			continue
		}

		key := Key(sub.ID, art.path)
		if err := a.copy(ctx, art.url, key); err != nil {
			log.Error("failed to archive artifact", slog.String("key", key), sl.Err(err))

			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", op, err)
			}

			continue
		}

		log.Info("artifact archived", slog.String("key", key))
	}

	return firstErr
}

// Key is the object name of an artifact: its file name under the submission id.
func Key(submissionID, artifactPath string) string {
	return submissionID + "/" + backend.Filename(artifactPath)
}

func (a *Archiver) copy(ctx context.Context, rawURL, key string) error {
	resp, err := a.src.Open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return a.store.PutObject(ctx, key, resp.Body, resp.ContentLength, contentType)
}
