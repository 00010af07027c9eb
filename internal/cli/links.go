package cli

import (
	"github.com/spf13/cobra"

	"github.com/zanzhit/flameguard/internal/backend"
)

func newLinksCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Build backend URLs from log path fragments",
		Long: `Build the backend URL for a path stored in a fire or video log entry.
Image fragments keep only their final path segment; video and log
fragments are appended as given.

Examples:
  flamectl links image fire_images/fire_20240101_120000.jpg
  flamectl links video runs/detect/predict/output.mp4`,
	}

	link := func(use, short, label string, build func(*backend.Links, string) string) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <fragment>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := o.renderer(cmd)
				if err != nil {
					return err
				}

				links := o.client(o.logger(cmd.ErrOrStderr())).Links()

				return r.Value(label, build(links, args[0]))
			},
		}
	}

	cmd.AddCommand(
		link("image", "URL of a fire detection screenshot", "image", (*backend.Links).Image),
		link("video", "URL of a past processed video", "video", (*backend.Links).PastVideo),
		link("log", "URL of a past detection CSV log", "log", (*backend.Links).PastLog),
	)

	return cmd
}
