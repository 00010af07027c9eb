// Package submission drives the offline video flow: pick a file, upload it and
// follow the backend until the processed artifact is ready.
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lithammer/shortuuid/v3"
	"github.com/samber/lo"

	"github.com/zanzhit/flameguard/internal/domain/constants"
	"github.com/zanzhit/flameguard/internal/domain/errs"
	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/lib/format"
	"github.com/zanzhit/flameguard/internal/lib/sl"
)

const (
	OutcomeProcessed    = "processed"
	OutcomeFailed       = "failed"
	OutcomeUploadFailed = "upload_failed"
)

type Backend interface {
	UploadVideo(ctx context.Context, file models.FileInfo, r io.Reader) (models.UploadAck, error)
	VideoLogs(ctx context.Context) ([]models.VideoLog, error)
	DrainFeed(ctx context.Context, rawURL string, onFrame func(frames int)) (int, error)
}

type Links interface {
	VODFeed() string
	ProcessedVideo() string
	DetectionLog() string
}

type Journal interface {
	SaveSubmission(ctx context.Context, sub models.Submission) error
	UpdateSubmission(ctx context.Context, sub models.Submission) error
}

type Archiver interface {
	Archive(ctx context.Context, sub models.Submission, vl models.VideoLog) error
}

type Publisher interface {
	Publish(models.Event)
}

type Observer interface {
	ObserveSubmission(outcome string)
}

// Source yields the selected file's content. It may be opened more than once.
type Source interface {
	Open() (io.ReadCloser, error)
}

// Releaser is implemented by sources that own temporary storage.
type Releaser interface {
	Release() error
}

type FileSource string

func (p FileSource) Open() (io.ReadCloser, error) {
	return os.Open(string(p))
}

type Options struct {
	PollInterval      time.Duration
	ProcessingTimeout time.Duration
	DriveFeed         bool
}

type ArtifactLinks struct {
	Feed  string `json:"feed"`
	Video string `json:"video"`
	Log   string `json:"log"`
}

type Flow struct {
	log       *slog.Logger
	backend   Backend
	links     Links
	journal   Journal
	archiver  Archiver
	publisher Publisher
	observer  Observer
	validate  *validator.Validate
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    models.SubmissionState
	source   Source
	done     chan struct{}
	watchErr error
}

type Option func(*Flow)

func WithJournal(j Journal) Option {
	return func(f *Flow) { f.journal = j }
}

func WithArchiver(a Archiver) Option {
	return func(f *Flow) { f.archiver = a }
}

func WithPublisher(p Publisher) Option {
	return func(f *Flow) { f.publisher = p }
}

func WithObserver(o Observer) Option {
	return func(f *Flow) { f.observer = o }
}

func New(log *slog.Logger, backend Backend, links Links, opts Options, options ...Option) *Flow {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ProcessingTimeout <= 0 {
		opts.ProcessingTimeout = 15 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	f := &Flow{
		log:      log,
		backend:  backend,
		links:    links,
		validate: NewValidator(),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, o := range options {
		o(f)
	}

	return f
}

// NewValidator returns a validator that knows the video_mime tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("video_mime", func(fl validator.FieldLevel) bool {
		return lo.Contains(constants.AllowedVideoTypes, fl.Field().String())
	})

	return v
}

// ContentTypeFor guesses the video type of name from its extension. It returns
// an empty string for anything the file picker would not offer.
func ContentTypeFor(name string) string {
	return constants.VideoTypeByExt[strings.ToLower(filepath.Ext(name))]
}

func (f *Flow) SelectFile(info models.FileInfo, src Source) (models.Notification, error) {
	const op = "services.submission.SelectFile"

	log := f.log.With(slog.String("op", op), slog.String("file", info.Name))

	f.mu.Lock()
	if f.state.Uploading || f.state.Processing {
		f.mu.Unlock()

		return models.Failure("Upload in progress", "Wait for the current video to finish processing"),
			fmt.Errorf("%s: %w", op, errs.ErrUploadInProgress)
	}
	f.mu.Unlock()

	if err := f.validate.Struct(info); err != nil {
		log.Info("file rejected", slog.String("content_type", info.ContentType))

		return models.Failure("Invalid file type", "Please select an MP4, AVI, or MOV video file"),
			fmt.Errorf("%s: %w", op, errs.ErrInvalidFileType)
	}

	f.mu.Lock()
	prev := f.source
	file := info
	f.source = src
	f.state = models.SubmissionState{File: &file, FileSize: format.Bytes(info.Size)}
	st := f.state
	f.mu.Unlock()

	if prev != nil && prev != src {
		release(log, prev)
	}

	log.Info("file selected", slog.Int64("size", info.Size))

	n := models.Success("File selected", fmt.Sprintf("%s (%s)", info.Name, st.FileSize))
	f.publish(n, st)

	return n, nil
}

// Submit uploads the selected file and starts following its processing. It
// returns once the upload is acknowledged; completion is reported through the
// publisher and observable with State or Wait.
func (f *Flow) Submit(ctx context.Context) (models.Notification, error) {
	const op = "services.submission.Submit"

	log := f.log.With(slog.String("op", op))

	f.mu.Lock()
	if f.state.File == nil || f.source == nil {
		f.mu.Unlock()

		return models.Failure("No file selected", "Please select a video file to process"),
			fmt.Errorf("%s: %w", op, errs.ErrNoFileSelected)
	}
	if f.state.Uploading || f.state.Processing {
		f.mu.Unlock()

		return models.Failure("Upload in progress", "Wait for the current video to finish processing"),
			fmt.Errorf("%s: %w", op, errs.ErrUploadInProgress)
	}

	file := *f.state.File
	src := f.source
	sub := models.Submission{
		ID:          shortuuid.New(),
		Filename:    file.Name,
		Size:        file.Size,
		ContentType: file.ContentType,
		Status:      models.SubmissionUploading,
		CreatedAt:   time.Now().UTC(),
	}
	sub.UpdatedAt = sub.CreatedAt

	f.state.SubmissionID = sub.ID
	f.state.Uploading = true
	f.state.Processed = false
	f.state.Frames = 0
	st := f.state
	f.mu.Unlock()

	log = log.With(slog.String("submission_id", sub.ID), slog.String("file", file.Name))
	f.publish(models.Info("Uploading", file.Name), st)

	baseline, known := f.baseline(ctx, log)

	f.saveJournal(ctx, log, sub)

	if err := f.upload(ctx, file, src); err != nil {
		log.Error("failed to upload video", sl.Err(err))

		sub.Status = models.SubmissionFailed
		sub.Error = err.Error()
		f.updateJournal(ctx, log, sub)

		f.mu.Lock()
		f.state.Uploading = false
		f.state.Processing = false
		st = f.state
		f.mu.Unlock()

		f.observe(OutcomeUploadFailed)

		n := models.Failure("Failed to upload video. Is the backend server running?", "")
		f.publish(n, st)

		return n, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("video uploaded")

	sub.Status = models.SubmissionProcessing
	f.updateJournal(ctx, log, sub)

	done := make(chan struct{})

	f.mu.Lock()
	f.state.Uploading = false
	f.state.Processing = true
	f.done = done
	f.watchErr = nil
	st = f.state
	f.mu.Unlock()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer close(done)

		f.watch(sub, baseline, known)
	}()

	n := models.Success("Upload successful", "Video processing started")
	f.publish(n, st)

	return n, nil
}

// Reset clears the selected file and the processed flag. It is refused while
// an upload is being processed.
func (f *Flow) Reset() error {
	const op = "services.submission.Reset"

	f.mu.Lock()
	if f.state.Uploading || f.state.Processing {
		f.mu.Unlock()

		return fmt.Errorf("%s: %w", op, errs.ErrUploadInProgress)
	}

	prev := f.source
	f.source = nil
	f.state = models.SubmissionState{}
	st := f.state
	f.mu.Unlock()

	if prev != nil {
		release(f.log.With(slog.String("op", op)), prev)
	}

	f.publish(models.Notification{}, st)

	return nil
}

func (f *Flow) State() models.SubmissionState {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := f.state
	if st.File != nil {
		file := *st.File
		st.File = &file
	}

	return st
}

// Links point at the backend's most recent processed artifact, not at a
// particular submission.
func (f *Flow) Links() ArtifactLinks {
	return ArtifactLinks{
		Feed:  f.links.VODFeed(),
		Video: f.links.ProcessedVideo(),
		Log:   f.links.DetectionLog(),
	}
}

// Wait blocks until the current submission leaves the processing state and
// returns its watcher error, if any.
func (f *Flow) Wait(ctx context.Context) error {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.watchErr
}

// Close stops background watchers and releases the selected file.
func (f *Flow) Close() {
	f.cancel()
	f.wg.Wait()

	f.mu.Lock()
	prev := f.source
	f.source = nil
	f.mu.Unlock()

	if prev != nil {
		release(f.log, prev)
	}
}

func (f *Flow) upload(ctx context.Context, file models.FileInfo, src Source) error {
	rc, err := src.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()

	ack, err := f.backend.UploadVideo(ctx, file, rc)
	if err != nil {
		return err
	}

	if ack.Error != "" {
		return fmt.Errorf("%w: %s", errs.ErrUnexpectedStatus, ack.Error)
	}

	return nil
}

// baseline records the newest video log id before the upload, so the watcher
// can tell the log this upload produces from older ones.
func (f *Flow) baseline(ctx context.Context, log *slog.Logger) (int64, bool) {
	logs, err := f.backend.VideoLogs(ctx)
	if err != nil {
		log.Warn("failed to read video logs before upload", sl.Err(err))

		return 0, false
	}

	return maxID(logs), true
}

func (f *Flow) watch(sub models.Submission, baseline int64, known bool) {
	const op = "services.submission.watch"

	log := f.log.With(slog.String("op", op), slog.String("submission_id", sub.ID))

	ctx, cancel := context.WithTimeout(f.ctx, f.opts.ProcessingTimeout)
	defer cancel()

	var feed sync.WaitGroup
	if f.opts.DriveFeed {
		feed.Add(1)
		go func() {
			defer feed.Done()

			frames, err := f.backend.DrainFeed(ctx, f.links.VODFeed(), f.setFrames)
			if err != nil && ctx.Err() == nil {
				log.Warn("processed feed ended with error", sl.Err(err), slog.Int("frames", frames))
				return
			}

			log.Debug("processed feed drained", slog.Int("frames", frames))
		}()
	}

	vl, err := f.awaitVideoLog(ctx, log, baseline, known)

	cancel()
	feed.Wait()

	if err != nil {
		log.Error("processing did not complete", sl.Err(err))

		sub.Status = models.SubmissionFailed
		sub.Error = err.Error()
		f.updateJournal(f.ctx, log, sub)

		f.mu.Lock()
		f.state.Processing = false
		f.watchErr = err
		st := f.state
		f.mu.Unlock()

		f.observe(OutcomeFailed)
		f.publish(models.Failure("Processing did not complete", "The backend did not report a finished analysis"), st)

		return
	}

	log.Info("processing complete", slog.Int64("video_log_id", vl.ID))

	id := vl.ID
	sub.Status = models.SubmissionProcessed
	sub.VideoLogID = &id
	f.updateJournal(f.ctx, log, sub)

	f.mu.Lock()
	f.state.Processing = false
	f.state.Processed = true
	st := f.state
	f.mu.Unlock()

	f.observe(OutcomeProcessed)
	f.publish(models.Success("Processing complete", "Video analysis finished successfully"), st)

	if f.archiver != nil {
		if err := f.archiver.Archive(f.ctx, sub, vl); err != nil {
			log.Error("failed to archive artifacts", sl.Err(err))
		}
	}
}

func (f *Flow) awaitVideoLog(ctx context.Context, log *slog.Logger, baseline int64, known bool) (models.VideoLog, error) {
	ticker := time.NewTicker(f.opts.PollInterval)
	defer ticker.Stop()

	for {
		logs, err := f.backend.VideoLogs(ctx)
		switch {
		case err != nil:
			if ctx.Err() == nil {
				log.Warn("failed to poll video logs", sl.Err(err))
			}
		case !known:
			baseline, known = maxID(logs), true
		default:
			fresh := lo.Filter(logs, func(vl models.VideoLog, _ int) bool { return vl.ID > baseline })
			if len(fresh) > 0 {
				return newest(fresh), nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return models.VideoLog{}, errs.ErrProcessingTimeout
			}

			return models.VideoLog{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *Flow) setFrames(frames int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state.Frames = frames
}

func (f *Flow) saveJournal(ctx context.Context, log *slog.Logger, sub models.Submission) {
	if f.journal == nil {
		return
	}

	if err := f.journal.SaveSubmission(ctx, sub); err != nil {
		log.Error("failed to journal submission", sl.Err(err))
	}
}

func (f *Flow) updateJournal(ctx context.Context, log *slog.Logger, sub models.Submission) {
	if f.journal == nil {
		return
	}

	sub.UpdatedAt = time.Now().UTC()
	if err := f.journal.UpdateSubmission(ctx, sub); err != nil {
		log.Error("failed to update submission", sl.Err(err))
	}
}

func (f *Flow) observe(outcome string) {
	if f.observer != nil {
		f.observer.ObserveSubmission(outcome)
	}
}

func (f *Flow) publish(n models.Notification, st models.SubmissionState) {
	if f.publisher == nil {
		return
	}

	ev := models.Event{Kind: models.EventSubmission, Submission: &st}
	if n.Title != "" {
		ev.Notification = &n
	}

	f.publisher.Publish(ev)
}

func release(log *slog.Logger, src Source) {
	r, ok := src.(Releaser)
	if !ok {
		return
	}

	if err := r.Release(); err != nil {
		log.Warn("failed to release selected file", sl.Err(err))
	}
}

func maxID(logs []models.VideoLog) int64 {
	if len(logs) == 0 {
		return 0
	}

	return newest(logs).ID
}

func newest(logs []models.VideoLog) models.VideoLog {
	return lo.MaxBy(logs, func(a, b models.VideoLog) bool { return a.ID > b.ID })
}
