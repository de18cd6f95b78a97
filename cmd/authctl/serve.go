package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/goAuthClient/internal/authtest"
)

func serveFakeCmd(flags *globalFlags) *cobra.Command {
	var (
		addr     string
		secret   string
		tokenTTL time.Duration
		users    []string
	)

	cmd := &cobra.Command{
		Use:   "serve-fake",
		Short: "Run an in-memory auth service for local development",
		Long: `serve-fake serves the auth endpoints from memory. Users are given as
name:password[:role]; role defaults to USER.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := flags.logger()

			srv := authtest.New(authtest.Options{Secret: []byte(secret), TokenTTL: tokenTTL})
			for _, entry := range users {
				parts := strings.SplitN(entry, ":", 3)
				if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
					return fmt.Errorf("invalid --user %q; want name:password[:role]", entry)
				}
				role := "USER"
				if len(parts) == 3 && parts[2] != "" {
					role = strings.ToUpper(parts[2])
				}
				srv.AddUser(parts[0], parts[1], role)
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv,
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpServer.ListenAndServe()
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "Fake auth service listening on %s\n", addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&secret, "secret", "", "token signing secret; random when empty")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", authtest.DefaultTokenTTL, "token lifetime")
	cmd.Flags().StringSliceVar(&users, "user", []string{"admin:admin123:ADMIN", "user:user123:USER"}, "seed user as name:password[:role]")

	return cmd
}
