// Command authctl drives an auth session from the terminal: log in, inspect
// the stored token, refresh it, and log out. Credentials persist between
// invocations in the configured store, a SQLite file by default.
//
// Configuration comes from AUTHCLIENT_* variables, read after loading a
// .env file from the working directory when one exists. Flags win over both.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

var version = "dev"

type globalFlags struct {
	baseURL    string
	storage    string
	sqlitePath string
	redisURL   string
	verbose    bool
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "authctl",
		Short: "Manage an auth service session from the command line",
		Long: `authctl logs in to an auth service and keeps the session in a local
credential store so later commands can reuse it.

Environment variables use the AUTHCLIENT_ prefix, for example
AUTHCLIENT_SERVER_BASE_URL or AUTHCLIENT_STORAGE_BACKEND.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.baseURL, "base-url", "", "auth service base URL")
	pf.StringVar(&flags.storage, "storage", "", "credential store: memory, redis or sqlite")
	pf.StringVar(&flags.sqlitePath, "sqlite-path", "", "SQLite credential file")
	pf.StringVar(&flags.redisURL, "redis-url", "", "Redis URL for the redis store")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(
		loginCmd(flags),
		registerCmd(flags),
		logoutCmd(flags),
		whoamiCmd(flags),
		statusCmd(flags),
		refreshCmd(flags),
		validateCmd(flags),
		usersCmd(flags),
		watchCmd(flags),
		serveFakeCmd(flags),
	)
	return rootCmd
}

func (f *globalFlags) logger() *slog.Logger {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// config layers flags over the environment. Without an explicit choice the
// CLI keeps credentials in a SQLite file under the user config directory.
func (f *globalFlags) config() (goAuthClient.Config, error) {
	cfg, err := goAuthClient.LoadConfigFromEnv()
	if err != nil {
		return cfg, err
	}
	cfg.Refresh.Enabled = false

	if _, set := os.LookupEnv(goAuthClient.EnvPrefix + "STORAGE_BACKEND"); !set && f.storage == "" {
		cfg.Storage.Backend = goAuthClient.StorageSQLite
	}
	if f.baseURL != "" {
		cfg.Server.BaseURL = f.baseURL
	}
	if f.storage != "" {
		cfg.Storage.Backend = goAuthClient.StorageBackend(f.storage)
	}
	if f.sqlitePath != "" {
		cfg.Storage.SQLitePath = f.sqlitePath
	}
	if f.redisURL != "" {
		cfg.Storage.RedisURL = f.redisURL
	}
	if cfg.Storage.Backend == goAuthClient.StorageSQLite && cfg.Storage.SQLitePath == "" {
		path, err := defaultSQLitePath()
		if err != nil {
			return cfg, err
		}
		cfg.Storage.SQLitePath = path
	}
	return cfg, cfg.Validate()
}

func (f *globalFlags) engine(cfg goAuthClient.Config) (*goAuthClient.Engine, error) {
	return goAuthClient.New().
		WithConfig(cfg).
		WithLogger(f.logger()).
		Build()
}

func defaultSQLitePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	dir = filepath.Join(dir, "authctl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return filepath.Join(dir, "credentials.db"), nil
}
