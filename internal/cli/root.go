// v0
// internal/cli/root.go
package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"amlio/rover/internal/client"
	"amlio/rover/internal/logging"
)

type options struct {
	addr     string
	timeout  time.Duration
	logLevel string
}

// NewRootCommand builds the roverctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "roverctl",
		Short:         "Drive the rover and watch its distance sensors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defAddr := os.Getenv("ROVER_ADDR")
	if defAddr == "" {
		defAddr = client.DefaultAddr
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", defAddr, "rover address (host[:port] or URL), env ROVER_ADDR")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Second, "per-request timeout")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "WARN", "log level (DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(
		newWatchCommand(opts),
		newPingCommand(opts),
		newDriveCommand(opts),
		newStopCommand(opts),
		newAutoCommand(opts),
		newStatusCommand(opts),
	)
	return root
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logging.ParseLevel(o.logLevel)}))
}

func (o *options) client() (*client.Client, error) {
	return client.New(o.addr, newHTTPClient(o.timeout))
}
