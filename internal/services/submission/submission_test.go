package submission

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zanzhit/flameguard/internal/domain/errs"
	"github.com/zanzhit/flameguard/internal/domain/models"
)

type fakeBackend struct {
	mu        sync.Mutex
	logs      []models.VideoLog
	uploadErr error
	uploaded  []byte
	uploads   int
	// appended to logs once the feed has been drained
	produce *models.VideoLog
	frames  int
}

func (b *fakeBackend) UploadVideo(ctx context.Context, file models.FileInfo, r io.Reader) (models.UploadAck, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.UploadAck{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.uploads++
	if b.uploadErr != nil {
		return models.UploadAck{}, b.uploadErr
	}
	b.uploaded = data

	return models.UploadAck{Message: "Video uploaded successfully"}, nil
}

func (b *fakeBackend) VideoLogs(ctx context.Context) ([]models.VideoLog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]models.VideoLog(nil), b.logs...), nil
}

func (b *fakeBackend) DrainFeed(ctx context.Context, rawURL string, onFrame func(int)) (int, error) {
	for i := 1; i <= b.frames; i++ {
		onFrame(i)
	}

	b.mu.Lock()
	if b.produce != nil {
		b.logs = append(b.logs, *b.produce)
	}
	b.mu.Unlock()

	return b.frames, nil
}

func (b *fakeBackend) uploadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.uploads
}

type fakeLinks struct{}

func (fakeLinks) VODFeed() string        { return "http://backend/vod_video_feed" }
func (fakeLinks) ProcessedVideo() string { return "http://backend/download_processed_video" }
func (fakeLinks) DetectionLog() string   { return "http://backend/download_detection_log" }

type memoryJournal struct {
	mu   sync.Mutex
	subs map[string]models.Submission
}

func (j *memoryJournal) SaveSubmission(ctx context.Context, sub models.Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.subs == nil {
		j.subs = make(map[string]models.Submission)
	}
	j.subs[sub.ID] = sub

	return nil
}

func (j *memoryJournal) UpdateSubmission(ctx context.Context, sub models.Submission) error {
	return j.SaveSubmission(ctx, sub)
}

func (j *memoryJournal) get(id string) models.Submission {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.subs[id]
}

type stringSource string

func (s stringSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(s))), nil
}

type releasingSource struct {
	stringSource
	released bool
}

func (s *releasingSource) Release() error {
	s.released = true
	return nil
}

func newFlow(b Backend, opts Options, options ...Option) *Flow {
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	if opts.ProcessingTimeout == 0 {
		opts.ProcessingTimeout = 2 * time.Second
	}

	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), b, fakeLinks{}, opts, options...)
}

func mp4(name string, size int64) models.FileInfo {
	return models.FileInfo{Name: name, Size: size, ContentType: "video/mp4"}
}

func TestSelectFileRejectsUnsupportedTypes(t *testing.T) {
	f := newFlow(&fakeBackend{}, Options{})
	defer f.Close()

	for _, ct := range []string{"text/plain", "video/webm", "image/jpeg", ""} {
		n, err := f.SelectFile(models.FileInfo{Name: "notes.txt", Size: 10, ContentType: ct}, stringSource("x"))
		if !errors.Is(err, errs.ErrInvalidFileType) {
			t.Errorf("%q: expected ErrInvalidFileType, got %v", ct, err)
		}
		if n.Title != "Invalid file type" || n.Description != "Please select an MP4, AVI, or MOV video file" {
			t.Errorf("%q: unexpected notification %+v", ct, n)
		}
		if st := f.State(); st.File != nil || st.CanSubmit() {
			t.Errorf("%q: rejected file changed state: %+v", ct, st)
		}
	}
}

func TestSelectFileAcceptsAllowedTypes(t *testing.T) {
	f := newFlow(&fakeBackend{}, Options{})
	defer f.Close()

	for _, ct := range []string{"video/mp4", "video/avi", "video/quicktime"} {
		if _, err := f.SelectFile(models.FileInfo{Name: "clip", Size: 1536, ContentType: ct}, stringSource("x")); err != nil {
			t.Errorf("%q: %v", ct, err)
		}
	}

	n, err := f.SelectFile(mp4("forest.mp4", 1536), stringSource("x"))
	if err != nil {
		t.Fatalf("SelectFile: %v", err)
	}
	if n.Title != "File selected" || n.Description != "forest.mp4 (1.5 KB)" {
		t.Errorf("unexpected notification %+v", n)
	}

	st := f.State()
	if st.File == nil || st.File.Name != "forest.mp4" || !st.CanSubmit() || st.Status() != "Ready" {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestSubmitWithoutFile(t *testing.T) {
	b := &fakeBackend{}
	f := newFlow(b, Options{})
	defer f.Close()

	n, err := f.Submit(context.Background())
	if !errors.Is(err, errs.ErrNoFileSelected) {
		t.Fatalf("expected ErrNoFileSelected, got %v", err)
	}
	if n.Title != "No file selected" {
		t.Errorf("unexpected notification %+v", n)
	}
	if b.uploadCount() != 0 {
		t.Error("backend must not be called without a file")
	}
}

func TestSubmitCompletesWhenNewVideoLogAppears(t *testing.T) {
	b := &fakeBackend{
		logs:    []models.VideoLog{{ID: 4}, {ID: 7}},
		produce: &models.VideoLog{ID: 8, VideoPath: "out/forest.mp4", CSVPath: "out/forest.csv"},
		frames:  3,
	}
	j := &memoryJournal{}
	f := newFlow(b, Options{DriveFeed: true}, WithJournal(j))
	defer f.Close()

	if _, err := f.SelectFile(mp4("forest.mp4", 5), stringSource("video")); err != nil {
		t.Fatalf("SelectFile: %v", err)
	}

	n, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if n.Title != "Upload successful" {
		t.Errorf("unexpected notification %+v", n)
	}
	if string(b.uploaded) != "video" {
		t.Errorf("uploaded %q", b.uploaded)
	}

	if err := f.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	st := f.State()
	if !st.Processed || st.Processing || st.Uploading {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.Status() != "Completed" || st.Frames != 3 {
		t.Errorf("unexpected state %+v", st)
	}

	sub := j.get(st.SubmissionID)
	if sub.Status != models.SubmissionProcessed || sub.VideoLogID == nil || *sub.VideoLogID != 8 {
		t.Errorf("unexpected journal entry %+v", sub)
	}
}

func TestSubmitTimesOutWithoutNewLog(t *testing.T) {
	b := &fakeBackend{logs: []models.VideoLog{{ID: 1}}}
	j := &memoryJournal{}
	f := newFlow(b, Options{ProcessingTimeout: 30 * time.Millisecond}, WithJournal(j))
	defer f.Close()

	_, _ = f.SelectFile(mp4("a.mp4", 1), stringSource("a"))
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := f.Wait(context.Background()); !errors.Is(err, errs.ErrProcessingTimeout) {
		t.Fatalf("expected ErrProcessingTimeout, got %v", err)
	}

	st := f.State()
	if st.Processing || st.Processed {
		t.Errorf("unexpected state %+v", st)
	}
	if sub := j.get(st.SubmissionID); sub.Status != models.SubmissionFailed {
		t.Errorf("unexpected journal entry %+v", sub)
	}
}

func TestSubmitUploadFailure(t *testing.T) {
	b := &fakeBackend{uploadErr: errors.New("connection refused")}
	f := newFlow(b, Options{})
	defer f.Close()

	_, _ = f.SelectFile(mp4("a.mp4", 1), stringSource("a"))

	n, err := f.Submit(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if n.Level != models.LevelError {
		t.Errorf("unexpected notification %+v", n)
	}

	st := f.State()
	if st.Uploading || st.Processing || st.Processed {
		t.Errorf("unexpected state %+v", st)
	}
	if !st.CanSubmit() {
		t.Error("file must stay selected after a failed upload")
	}
}

func TestResetClearsSelection(t *testing.T) {
	b := &fakeBackend{produce: &models.VideoLog{ID: 1}}
	f := newFlow(b, Options{DriveFeed: true})
	defer f.Close()

	src := &releasingSource{stringSource: "a"}
	_, _ = f.SelectFile(mp4("a.mp4", 1), src)
	_, _ = f.Submit(context.Background())
	_ = f.Wait(context.Background())

	if err := f.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	st := f.State()
	if st.File != nil || st.Processed || st.SubmissionID != "" {
		t.Errorf("unexpected state %+v", st)
	}
	if !src.released {
		t.Error("expected the selected file to be released")
	}
}

func TestBusyFlowRefusesChanges(t *testing.T) {
	b := &fakeBackend{}
	f := newFlow(b, Options{ProcessingTimeout: time.Minute})

	_, _ = f.SelectFile(mp4("a.mp4", 1), stringSource("a"))
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := f.Submit(context.Background()); !errors.Is(err, errs.ErrUploadInProgress) {
		t.Errorf("expected ErrUploadInProgress, got %v", err)
	}
	if err := f.Reset(); !errors.Is(err, errs.ErrUploadInProgress) {
		t.Errorf("expected ErrUploadInProgress, got %v", err)
	}
	if _, err := f.SelectFile(mp4("b.mp4", 1), stringSource("b")); !errors.Is(err, errs.ErrUploadInProgress) {
		t.Errorf("expected ErrUploadInProgress, got %v", err)
	}

	f.Close()

	if st := f.State(); st.Processing {
		t.Error("closing the flow must end processing")
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"a.mp4", "video/mp4"},
		{"B.MOV", "video/quicktime"},
		{"dir/c.avi", "video/avi"},
		{"notes.txt", ""},
	}

	for _, tc := range cases {
		if got := ContentTypeFor(tc.name); got != tc.want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
