package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/jwt"
)

// withEngine builds an Engine, optionally restores the stored session, and
// runs fn.
func withEngine(cmd *cobra.Command, flags *globalFlags, restore bool, fn func(context.Context, *goAuthClient.Engine) error) error {
	cfg, err := flags.config()
	if err != nil {
		return err
	}
	engine, err := flags.engine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := cmd.Context()
	if restore {
		engine.Initialize(ctx)
	}
	return fn(ctx, engine)
}

func requireSession(engine *goAuthClient.Engine) (goAuthClient.State, error) {
	state := engine.State()
	if !state.IsAuthenticated {
		return state, errors.New("not logged in; run `authctl login`")
	}
	return state, nil
}

func loginCmd(flags *globalFlags) *cobra.Command {
	var (
		username   string
		password   string
		rememberMe bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				password = p
			}
			return withEngine(cmd, flags, false, func(ctx context.Context, engine *goAuthClient.Engine) error {
				ok := engine.Login(ctx, goAuthClient.LoginRequest{
					Username:   username,
					Password:   password,
					RememberMe: rememberMe,
				})
				if !ok {
					return fmt.Errorf("login failed: %s", engine.State().Error)
				}
				printUser(cmd.OutOrStdout(), engine.State().User)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password; read from stdin when omitted")
	cmd.Flags().BoolVar(&rememberMe, "remember-me", false, "ask the service for a long-lived session")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func registerCmd(flags *globalFlags) *cobra.Command {
	var req goAuthClient.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				p, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				req.Password = p
			}
			if req.ConfirmPassword == "" {
				req.ConfirmPassword = req.Password
			}
			return withEngine(cmd, flags, false, func(ctx context.Context, engine *goAuthClient.Engine) error {
				if !engine.Register(ctx, req) {
					return fmt.Errorf("registration failed: %s", engine.State().Error)
				}
				printUser(cmd.OutOrStdout(), engine.State().User)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "email address")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "display name")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password; read from stdin when omitted")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm-password", "", "password confirmation; defaults to --password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func logoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, flags, false, func(ctx context.Context, engine *goAuthClient.Engine) error {
				engine.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func whoamiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, flags, true, func(ctx context.Context, engine *goAuthClient.Engine) error {
				state, err := requireSession(engine)
				if err != nil {
					return err
				}
				printUser(cmd.OutOrStdout(), state.User)
				if state.Degraded {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: auth service unreachable; showing cached profile")
				}
				return nil
			})
		},
	}
}

func statusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Inspect the stored token without contacting the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, flags, false, func(ctx context.Context, engine *goAuthClient.Engine) error {
				out := cmd.OutOrStdout()
				token, ok := engine.Store().Token()
				if !ok || token == "" {
					fmt.Fprintln(out, "No stored token")
					return nil
				}
				claims, err := jwt.ParseClaims(token)
				if err != nil {
					fmt.Fprintf(out, "Stored token is malformed: %v\n", err)
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "Subject:\t%s\n", claims.Subject)
				fmt.Fprintf(w, "Username:\t%s\n", claims.Username)
				fmt.Fprintf(w, "Role:\t%s\n", claims.Role)
				fmt.Fprintf(w, "Issued:\t%s\n", claims.IssuedAt.Format(time.RFC3339))
				fmt.Fprintf(w, "Expires:\t%s\n", claims.ExpiresAt.Format(time.RFC3339))
				if jwt.IsExpired(token) {
					fmt.Fprintf(w, "State:\texpired\n")
				} else {
					remaining := time.Duration(jwt.RemainingSeconds(token)) * time.Second
					fmt.Fprintf(w, "State:\tvalid for %s\n", remaining)
				}
				_, hasRefresh := engine.Store().RefreshToken()
				fmt.Fprintf(w, "Refresh token:\t%t\n", hasRefresh)
				return w.Flush()
			})
		},
	}
}

func refreshCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored token for a new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, flags, true, func(ctx context.Context, engine *goAuthClient.Engine) error {
				if _, err := requireSession(engine); err != nil {
					return err
				}
				if !engine.Refresh(ctx) {
					return errors.New("refresh failed; the session was cleared")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Token refreshed")
				return nil
			})
		},
	}
}

func validateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Ask the service whether the stored token is valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, flags, false, func(ctx context.Context, engine *goAuthClient.Engine) error {
				info, err := engine.ValidateToken(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !info.Valid {
					fmt.Fprintln(out, "Token is not valid")
					return nil
				}
				fmt.Fprintf(out, "Token is valid for %s (%s) until %s\n",
					info.Username, info.Role, time.Unix(info.Expiration, 0).Format(time.RFC3339))
				return nil
			})
		},
	}
}

func usersCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List accounts (administrators only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, flags, true, func(ctx context.Context, engine *goAuthClient.Engine) error {
				if _, err := requireSession(engine); err != nil {
					return err
				}
				if !engine.IsAdmin() {
					return errors.New("the current user is not an administrator")
				}
				users, err := engine.ListUsers(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tSTATUS")
				for _, u := range users {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role, u.Status)
				}
				return w.Flush()
			})
		},
	}
}

func printUser(out io.Writer, u *goAuthClient.User) {
	if u == nil {
		fmt.Fprintln(out, "No user")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%d\n", u.ID)
	fmt.Fprintf(w, "Username:\t%s\n", u.Username)
	fmt.Fprintf(w, "Email:\t%s\n", u.Email)
	if u.FullName != "" {
		fmt.Fprintf(w, "Name:\t%s\n", u.FullName)
	}
	fmt.Fprintf(w, "Role:\t%s\n", u.Role)
	fmt.Fprintf(w, "Status:\t%s\n", u.Status)
	_ = w.Flush()
}

// readSecret reads one line from in. Input is echoed; pipe the password in
// when that matters.
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			fmt.Fprint(prompt, label)
		}
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}
