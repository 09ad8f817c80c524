// v0
// internal/cli/commands.go
package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"amlio/rover/internal/distance"
	"amlio/rover/internal/drive"
	"amlio/rover/internal/poller"
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func formatCM(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func printDistances(w io.Writer, r distance.Reading) {
	fmt.Fprintf(w, "Distance Gauche : %s cm\n", formatCM(r.Left))
	fmt.Fprintf(w, "Distance Droite : %s cm\n", formatCM(r.Right))
}

func printState(w io.Writer, st drive.State) {
	fmt.Fprintf(w, "direction=%s speed=%d mode=%s\n", st.Direction, st.Speed, st.Mode)
}

// syncWriter serialises output from the distance poller and the
// connection monitor.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func printConnection(w io.Writer, status string) {
	fmt.Fprintf(w, "Connexion : %s\n", status)
}

func newWatchCommand(opts *options) *cobra.Command {
	var interval time.Duration
	var once bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll /distances and display the left and right readings",
		Long:  "Poll /distances every interval and print the left and right readings.\n" +
			"The connection status is printed at start and whenever it changes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			log := opts.logger(cmd)
			out := &syncWriter{w: cmd.OutOrStdout()}
			p := poller.NewPoller(log, c, interval, nil)
			p.FetchOnStart = true
			p.OnUpdate = func(r distance.Reading, err error) {
				if err != nil {
					log.Warn("distance fetch failed", "err", err)
				}
				printDistances(out, r)
			}
			if once {
				p.PollOnce(cmd.Context())
				return nil
			}

			ctx := cmd.Context()
			mon := poller.NewConnectionMonitor(log, c, interval)
			printConnection(out, mon.Check(ctx))
			mon.OnChange = func(status string) { printConnection(out, status) }

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				mon.Run(ctx)
			}()
			p.Run(ctx)
			wg.Wait()
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "polling period for distances and connection checks")
	cmd.Flags().BoolVar(&once, "once", false, "fetch a single reading and exit")
	return cmd
}

func newPingCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the rover answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			m := poller.NewConnectionMonitor(opts.logger(cmd), c, 0)
			status := m.Check(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Connexion : %s (%s)\n", status, c.BaseURL())
			if !m.Connected() {
				return errors.New("rover unreachable")
			}
			return nil
		},
	}
}

func newDriveCommand(opts *options) *cobra.Command {
	var speed int
	cmd := &cobra.Command{
		Use:       "drive <direction>",
		Short:     "Send a drive command (avance, recule, gauche, droite, avancedroite, ...)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"avance", "recule", "gauche", "droite", "avancedroite", "avancegauche", "reculedroite", "reculegauche", "stop"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := drive.ParseDirection(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("speed") {
				speed = -1
			}
			st, err := c.Drive(cmd.Context(), dir, speed)
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().IntVar(&speed, "speed", 50, "motor speed 0..100 (default keeps the rover's current speed)")
	return cmd
}

func newStopCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the motors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			st, err := c.Stop(cmd.Context())
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newAutoCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "auto on|off",
		Short:     "Switch the autopilot on or off",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			st, err := c.Auto(cmd.Context(), args[0] == "on")
			if err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	var follow bool
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the autopilot status line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w := poller.NewStatusWatcher(opts.logger(cmd), c, interval)
			w.OnUpdate = func(line string) { fmt.Fprintln(out, line) }
			if !follow {
				if w.PollOnce(cmd.Context()) == poller.StatusError {
					return errors.New("rover unreachable")
				}
				return nil
			}
			w.Run(cmd.Context())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep polling")
	cmd.Flags().DurationVar(&interval, "interval", poller.StatusInterval, "polling period with --follow")
	return cmd
}
