// Package cli implements flamectl, the operator command line for the
// detection backend. It drives the same services as the dashboard.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zanzhit/flameguard/internal/backend"
	"github.com/zanzhit/flameguard/internal/services/submission"
)

const Version = "0.1.0"

const (
	keyBackendURL        = "backend_url"
	keyTimeout           = "timeout"
	keyPollInterval      = "poll_interval"
	keyProcessingTimeout = "processing_timeout"
	keyDriveFeed         = "drive_feed"
	keyOutput            = "output"
	keyVerbose           = "verbose"
)

// Execute runs flamectl and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type options struct {
	cfgFile string
	v       *viper.Viper
}

// NewRootCmd builds the command tree. Settings come from flags, FLAMECTL_*
// environment variables and an optional YAML file, in that order of precedence.
func NewRootCmd() *cobra.Command {
	o := &options{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "flamectl",
		Short:         "Operate the FlameGuard detection backend",
		Long:          "flamectl starts and stops realtime detection, submits videos for analysis\nand lists detection history from the FlameGuard backend.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.initConfig()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.cfgFile, "config", "c", "", "config file (default: $HOME/.flamectl.yaml)")
	flags.String("backend", "http://localhost:5000", "detection backend base URL")
	flags.Duration("timeout", 30*time.Second, "timeout for backend JSON calls")
	flags.StringP("output", "o", "text", "output format: text, json")
	flags.BoolP("verbose", "v", false, "log debug messages to stderr")

	_ = o.v.BindPFlag(keyBackendURL, flags.Lookup("backend"))
	_ = o.v.BindPFlag(keyTimeout, flags.Lookup("timeout"))
	_ = o.v.BindPFlag(keyOutput, flags.Lookup("output"))
	_ = o.v.BindPFlag(keyVerbose, flags.Lookup("verbose"))

	o.v.SetDefault(keyPollInterval, 2*time.Second)
	o.v.SetDefault(keyProcessingTimeout, 15*time.Minute)
	o.v.SetDefault(keyDriveFeed, true)

	cmd.AddCommand(
		newWebcamCmd(o),
		newUploadCmd(o),
		newLogsCmd(o),
		newLinksCmd(o),
		newWatchCmd(o),
		newHashPasswordCmd(),
	)

	return cmd
}

func (o *options) initConfig() error {
	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			o.v.AddConfigPath(home)
		}
		o.v.AddConfigPath(".")
		o.v.SetConfigName(".flamectl")
		o.v.SetConfigType("yaml")
	}

	o.v.SetEnvPrefix("FLAMECTL")
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.v.AutomaticEnv()

	if err := o.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func (o *options) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.v.GetBool(keyVerbose) {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *options) client(log *slog.Logger) *backend.Client {
	return backend.New(log, o.v.GetString(keyBackendURL), o.v.GetDuration(keyTimeout))
}

func (o *options) submissionOptions() submission.Options {
	return submission.Options{
		PollInterval:      o.v.GetDuration(keyPollInterval),
		ProcessingTimeout: o.v.GetDuration(keyProcessingTimeout),
		DriveFeed:         o.v.GetBool(keyDriveFeed),
	}
}

func (o *options) renderer(cmd *cobra.Command) (*renderer, error) {
	switch format := strings.ToLower(o.v.GetString(keyOutput)); format {
	case "text", "":
		return newTextRenderer(cmd.OutOrStdout()), nil
	case "json":
		return newJSONRenderer(cmd.OutOrStdout()), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
