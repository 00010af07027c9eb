package cli

import (
	"github.com/spf13/cobra"

	"github.com/zanzhit/flameguard/internal/services/webcam"
)

func newWebcamCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webcam",
		Short: "Control realtime fire detection",
	}

	run := func(start bool) func(cmd *cobra.Command, _ []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			r, err := o.renderer(cmd)
			if err != nil {
				return err
			}

			log := o.logger(cmd.ErrOrStderr())
			client := o.client(log)
			controller := webcam.New(log, client, client.Links().RealtimeFeed(), nil, nil)

			call := controller.Stop
			if start {
				call = controller.Start
			}

			n, err := call(cmd.Context())
			if rerr := r.Notification(n); rerr != nil {
				return rerr
			}
			if err != nil {
				return err
			}

			return r.Webcam(controller.State())
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Start the backend webcam and realtime detection",
			Args:  cobra.NoArgs,
			RunE:  run(true),
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the backend webcam",
			Args:  cobra.NoArgs,
			RunE:  run(false),
		},
		&cobra.Command{
			Use:   "feed",
			Short: "Print the realtime MJPEG feed URL",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				r, err := o.renderer(cmd)
				if err != nil {
					return err
				}

				return r.Value("feed", o.client(o.logger(cmd.ErrOrStderr())).Links().RealtimeFeed())
			},
		},
	)

	return cmd
}
