package videohandler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/zanzhit/flameguard/internal/domain/constants"
	"github.com/zanzhit/flameguard/internal/domain/errs"
	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/http-server/handlers"
	"github.com/zanzhit/flameguard/internal/lib/api/response"
	"github.com/zanzhit/flameguard/internal/lib/sl"
	"github.com/zanzhit/flameguard/internal/services/submission"
)

const defaultSubmissionsLimit = 50

type Flow interface {
	SelectFile(info models.FileInfo, src submission.Source) (models.Notification, error)
	Submit(ctx context.Context) (models.Notification, error)
	Reset() error
	State() models.SubmissionState
	Links() submission.ArtifactLinks
}

type Journal interface {
	Submissions(ctx context.Context, limit int) ([]models.Submission, error)
}

type Reply struct {
	Notification *models.Notification     `json:"notification,omitempty"`
	State        models.SubmissionState   `json:"state"`
	Status       string                   `json:"status"`
	CanSubmit    bool                     `json:"can_submit"`
	Links        submission.ArtifactLinks `json:"links"`
	RequestID    string                   `json:"request_id,omitempty"`
}

type VideoHandler struct {
	log      *slog.Logger
	flow     Flow
	journal  Journal
	spoolDir string
}

func New(
	log *slog.Logger,
	flow Flow,
	journal Journal,
	spoolDir string,
) *VideoHandler {
	return &VideoHandler{
		log:      log,
		flow:     flow,
		journal:  journal,
		spoolDir: spoolDir,
	}
}

func (h *VideoHandler) State(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.reply(nil))
}

// Select spools the multipart field "file" to disk and hands it to the flow.
func (h *VideoHandler) Select(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.video.Select"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	// Refuse before the body is spooled; the flow checks again on SelectFile.
	if st := h.flow.State(); st.Uploading || st.Processing {
		h.fail(w, r, log, fmt.Errorf("%s: %w", op, errs.ErrUploadInProgress),
			models.Failure("Upload in progress", "Wait for the current video to finish processing"))

		return
	}

	info, spool, err := h.spool(r)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			handlers.Error(w, r, http.StatusBadRequest, response.Error("missing file field", middleware.GetReqID(r.Context())))

			return
		}

		log.Error("failed to receive file", sl.Err(err))

		handlers.Error(w, r, http.StatusBadRequest, response.Error("failed to receive file", middleware.GetReqID(r.Context())))

		return
	}

	log.Info("file received", slog.String("file", info.Name), slog.Int64("size", info.Size))

	n, err := h.flow.SelectFile(info, spool)
	if err != nil {
		_ = spool.Release()

		h.fail(w, r, log, err, n)

		return
	}

	render.JSON(w, r, h.reply(&n))
}

func (h *VideoHandler) Submit(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.video.Submit"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	n, err := h.flow.Submit(r.Context())
	if err != nil {
		h.fail(w, r, log, err, n)

		return
	}

	render.JSON(w, r, h.reply(&n))
}

func (h *VideoHandler) Reset(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.video.Reset"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := h.flow.Reset(); err != nil {
		h.fail(w, r, log, err, models.Failure("Cannot reset while a video is processing", ""))

		return
	}

	render.JSON(w, r, h.reply(nil))
}

func (h *VideoHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.video.Submissions"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit := defaultSubmissionsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			handlers.Error(w, r, http.StatusBadRequest, response.Error("invalid limit", middleware.GetReqID(r.Context())))

			return
		}
		limit = n
	}

	subs, err := h.journal.Submissions(r.Context(), limit)
	if err != nil {
		log.Error("failed to list submissions", sl.Err(err))

		handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to list submissions", middleware.GetReqID(r.Context())))

		return
	}

	render.JSON(w, r, map[string]any{"submissions": subs})
}

func (h *VideoHandler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, n models.Notification) {
	status := http.StatusBadGateway

	switch {
	case errors.Is(err, errs.ErrInvalidFileType), errors.Is(err, errs.ErrNoFileSelected):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrUploadInProgress):
		status = http.StatusConflict
	default:
		log.Error("video request failed", sl.Err(err))
	}

	res := h.reply(&n)
	res.RequestID = middleware.GetReqID(r.Context())

	render.Status(r, status)
	render.JSON(w, r, res)
}

func (h *VideoHandler) reply(n *models.Notification) Reply {
	st := h.flow.State()

	return Reply{
		Notification: n,
		State:        st,
		Status:       st.Status(),
		CanSubmit:    st.CanSubmit(),
		Links:        h.flow.Links(),
	}
}

func (h *VideoHandler) spool(r *http.Request) (models.FileInfo, *spoolFile, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return models.FileInfo{}, nil, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return models.FileInfo{}, nil, http.ErrMissingFile
		}
		if err != nil {
			return models.FileInfo{}, nil, err
		}

		if part.FormName() != constants.UploadFieldName || part.FileName() == "" {
			part.Close()
			continue
		}

		name := filepath.Base(part.FileName())
		contentType := part.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = submission.ContentTypeFor(name)
		}

		f, err := os.CreateTemp(h.spoolDir, "upload-*"+filepath.Ext(name))
		if err != nil {
			part.Close()
			return models.FileInfo{}, nil, fmt.Errorf("create spool file: %w", err)
		}

		n, err := io.Copy(f, part)
		part.Close()
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(f.Name())
			return models.FileInfo{}, nil, fmt.Errorf("spool upload: %w", err)
		}

		return models.FileInfo{Name: name, Size: n, ContentType: contentType}, &spoolFile{path: f.Name()}, nil
	}
}

type spoolFile struct {
	path string
}

func (s *spoolFile) Open() (io.ReadCloser, error) {
	return os.Open(s.path)
}

func (s *spoolFile) Release() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}
