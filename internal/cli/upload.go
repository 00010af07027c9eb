package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/services/submission"
)

// progressSource opens the file behind a progress bar drawn to w.
type progressSource struct {
	path string
	size int64
	w    io.Writer
}

func (s progressSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}

	bar := progressbar.NewOptions64(s.size,
		progressbar.OptionSetDescription("Uploading"),
		progressbar.OptionSetWriter(s.w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)

	return &progressReader{Reader: io.TeeReader(f, bar), file: f, bar: bar}, nil
}

type progressReader struct {
	io.Reader
	file *os.File
	bar  *progressbar.ProgressBar
}

func (r *progressReader) Close() error {
	_ = r.bar.Finish()
	return r.file.Close()
}

// lastNotice keeps the most recent submission notification published by a flow.
type lastNotice struct {
	mu sync.Mutex
	n  models.Notification
}

func (l *lastNotice) Publish(ev models.Event) {
	if ev.Kind != models.EventSubmission || ev.Notification == nil {
		return
	}

	l.mu.Lock()
	l.n = *ev.Notification
	l.mu.Unlock()
}

func (l *lastNotice) Get() models.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.n
}

func fileInfo(path string) (models.FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return models.FileInfo{}, err
	}
	if st.IsDir() {
		return models.FileInfo{}, fmt.Errorf("%s is a directory", path)
	}

	return models.FileInfo{
		Name:        filepath.Base(path),
		Size:        st.Size(),
		ContentType: submission.ContentTypeFor(path),
	}, nil
}

func newUploadCmd(o *options) *cobra.Command {
	var (
		wait       bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Submit a video for offline fire detection",
		Long: `Upload an MP4, AVI or MOV video to the backend for analysis.

The backend only analyses a video while its processed feed is being read.
With --wait flamectl reads the feed itself and returns once the analysis is
recorded in the video logs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.renderer(cmd)
			if err != nil {
				return err
			}

			info, err := fileInfo(args[0])
			if err != nil {
				return err
			}

			log := o.logger(cmd.ErrOrStderr())
			client := o.client(log)
			notices := &lastNotice{}

			flow := submission.New(log, client, client.Links(), o.submissionOptions(), submission.WithPublisher(notices))
			defer flow.Close()

			var src submission.Source = submission.FileSource(args[0])
			if !noProgress {
				src = progressSource{path: args[0], size: info.Size, w: cmd.ErrOrStderr()}
			}

			n, err := flow.SelectFile(info, src)
			if rerr := r.Notification(n); rerr != nil {
				return rerr
			}
			if err != nil {
				return err
			}

			n, err = flow.Submit(cmd.Context())
			if rerr := r.Notification(n); rerr != nil {
				return rerr
			}
			if err != nil {
				return err
			}

			links := flow.Links()

			if !wait {
				return r.Value("feed", links.Feed)
			}

			err = flow.Wait(cmd.Context())
			if rerr := r.Notification(notices.Get()); rerr != nil {
				return rerr
			}
			if err != nil {
				return err
			}

			if r.json {
				return r.encode(links)
			}

			fmt.Fprintf(r.w, "Processed video: %s\n", links.Video)
			fmt.Fprintf(r.w, "Detection log:   %s\n", links.Log)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "follow processing until the analysis is recorded")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not draw an upload progress bar")

	return cmd
}
