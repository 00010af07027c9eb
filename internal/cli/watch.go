package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zanzhit/flameguard/internal/ingest"
	"github.com/zanzhit/flameguard/internal/services/submission"
)

func newWatchCmd(o *options) *cobra.Command {
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch <pattern...>",
		Short: "Submit new videos dropped into a folder",
		Long: `Watch the folders of one or more glob patterns and submit every new video
that matches them. Videos are processed one at a time, each followed until the
backend records its analysis.

Examples:
  flamectl watch "/srv/drone/*.mp4"
  flamectl watch "/srv/drone/**/*.{mp4,avi,mov}" --settle 5s`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.renderer(cmd)
			if err != nil {
				return err
			}

			log := o.logger(cmd.ErrOrStderr())

			w, err := ingest.NewWatcher(log, args, ingest.WithSettle(settle))
			if err != nil {
				return err
			}

			client := o.client(log)
			flow := submission.New(log, client, client.Links(), o.submissionOptions())
			defer flow.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d folder(s):\n", len(w.Dirs()))
			for _, dir := range w.Dirs() {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", dir)
			}

			ctx := cmd.Context()
			go w.Start(ctx)

			for res := range ingest.New(log, flow).Run(ctx, w.Files()) {
				n := res.Notification
				if n.Description == "" {
					n.Description = res.Path
				} else {
					n.Description = res.Path + ": " + n.Description
				}

				if err := r.Notification(n); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", 2*time.Second, "how long a file must stay unchanged before it is submitted")

	return cmd
}
