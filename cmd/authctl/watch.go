package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

func watchCmd(flags *globalFlags) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the stored session fresh until interrupted",
		Long: `watch restores the stored session and runs the refresh scheduler,
printing every session change. It exits on interrupt or when the session
ends.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			cfg.Refresh.Enabled = true
			if interval > 0 {
				cfg.Refresh.Interval = interval
			}
			engine, err := flags.engine(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ended := make(chan struct{}, 1)
			out := cmd.OutOrStdout()
			cancel := engine.Subscribe(func(s goAuthClient.State) {
				printState(out, s)
				if s.Status == goAuthClient.StatusAnonymous || s.Status == goAuthClient.StatusError {
					select {
					case ended <- struct{}{}:
					default:
					}
				}
			})
			defer cancel()

			engine.Initialize(ctx)
			if !engine.State().IsAuthenticated {
				return errors.New("no session to watch; run `authctl login`")
			}

			select {
			case <-ctx.Done():
				fmt.Fprintln(out, "Stopped")
				return nil
			case <-ended:
				return errors.New("session ended")
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh check interval (default from config)")

	return cmd
}

func printState(out io.Writer, s goAuthClient.State) {
	ts := time.Now().Format(time.TimeOnly)
	switch {
	case s.IsAuthenticated && s.User != nil:
		suffix := ""
		if s.Degraded {
			suffix = " (cached)"
		}
		fmt.Fprintf(out, "%s %s as %s%s\n", ts, s.Status, s.User.Username, suffix)
	case s.Error != "":
		fmt.Fprintf(out, "%s %s: %s\n", ts, s.Status, s.Error)
	default:
		fmt.Fprintf(out, "%s %s\n", ts, s.Status)
	}
}
