// Package main implements the entry point for the Studio API server, which
// turns product photos into styled image batches and bills them against a
// per-user credit ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/phrazzld/studio-api/internal/config"
	"github.com/phrazzld/studio-api/internal/platform/logger"
)

// options are the command line flags. Without any of them the HTTP server runs.
type options struct {
	migrate     string
	grantUser   string
	grantAmount int
	issueToken  string
}

func parseFlags(args []string) (options, error) {
	var opts options
	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	flags.StringVar(&opts.migrate, "migrate", "", "run a migration command (up, down, reset, status, version) and exit")
	flags.StringVar(&opts.grantUser, "grant-user", "", "user ID to grant credits to")
	flags.IntVar(&opts.grantAmount, "grant-amount", 0, "number of credits to grant with -grant-user")
	flags.StringVar(&opts.issueToken, "issue-token", "", "print an access token for the given user ID and exit")
	if err := flags.Parse(args); err != nil {
		return opts, err
	}

	if opts.grantUser != "" && opts.grantAmount <= 0 {
		return opts, errors.New("-grant-amount must be positive when -grant-user is set")
	}
	if opts.grantAmount != 0 && opts.grantUser == "" {
		return opts, errors.New("-grant-amount requires -grant-user")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

// run loads configuration and dispatches to the command selected by opts.
func run(ctx context.Context, opts options) error {
	// A missing .env file is the normal case outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_concurrency", cfg.Generation.MaxConcurrency,
		"max_retries", cfg.Generation.MaxRetries)

	if opts.issueToken != "" {
		userID, err := uuid.Parse(opts.issueToken)
		if err != nil {
			return fmt.Errorf("invalid -issue-token user ID: %w", err)
		}
		return issueToken(ctx, os.Stdout, cfg.Auth, userID)
	}

	db, err := setupAppDatabase(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			l.Error("Error closing database connection", "error", err)
		}
	}()

	if opts.migrate != "" {
		return runMigrations(ctx, db, opts.migrate, l)
	}

	app, err := newApplication(ctx, cfg, l, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	if opts.grantUser != "" {
		userID, err := uuid.Parse(opts.grantUser)
		if err != nil {
			return fmt.Errorf("invalid -grant-user ID: %w", err)
		}
		return grantCredits(ctx, os.Stdout, app.service, userID, opts.grantAmount)
	}

	return app.Run(ctx)
}
