package cli

import (
	"github.com/spf13/cobra"

	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/services/history"
)

func newLogsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List detection history",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "fire",
			Short: "List realtime fire detections",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				r, err := o.renderer(cmd)
				if err != nil {
					return err
				}

				log := o.logger(cmd.ErrOrStderr())
				client := o.client(log)
				svc := history.New(log, client, nil)

				if err := svc.Fire.Refresh(cmd.Context()); err != nil {
					if rerr := r.Notification(models.Failure(svc.FireSnapshot().Error, "")); rerr != nil {
						return rerr
					}
					return err
				}

				return r.FireLogs(svc.FireSnapshot().Items, client.Links())
			},
		},
		&cobra.Command{
			Use:   "video",
			Short: "List processed videos",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				r, err := o.renderer(cmd)
				if err != nil {
					return err
				}

				log := o.logger(cmd.ErrOrStderr())
				client := o.client(log)
				svc := history.New(log, client, nil)

				if err := svc.Video.Refresh(cmd.Context()); err != nil {
					if rerr := r.Notification(models.Failure(svc.VideoSnapshot().Error, "")); rerr != nil {
						return rerr
					}
					return err
				}

				return r.VideoLogs(svc.VideoSnapshot().Items, client.Links())
			},
		},
	)

	return cmd
}
