package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/studio-api/internal/config"
	"github.com/phrazzld/studio-api/internal/generation"
	"github.com/phrazzld/studio-api/internal/platform/gemini"
	"github.com/phrazzld/studio-api/internal/platform/postgres"
	"github.com/phrazzld/studio-api/internal/service/auth"
	"github.com/phrazzld/studio-api/internal/studio"
	"github.com/phrazzld/studio-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jwtService auth.JWTService
	generator  generation.Generator
	service    *studio.Service
	taskRunner *task.TaskRunner
	started    bool
}

// newApplication creates the application with all dependencies initialized.
// The database connection is owned by the caller.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	generator, err := gemini.NewGeminiGenerator(ctx, logger.With("component", "gemini"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	logger.Info("Generator initialized",
		"analysis_model", cfg.LLM.AnalysisModel,
		"image_model", cfg.LLM.ImageModel)

	return buildApplication(cfg, logger, db, generator)
}

// buildApplication wires stores, task runner and service around an existing
// generator. The task runner is started by Run.
func buildApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	generator generation.Generator,
) (*application, error) {
	app := &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		generator: generator,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.taskRunner = task.NewTaskRunner(
		postgres.NewPostgresTaskStore(db, logger),
		task.TaskRunnerConfig{
			QueueSize:    cfg.Task.QueueSize,
			WorkerCount:  cfg.Task.WorkerCount,
			StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
		},
		logger.With("component", "task_runner"),
	)

	app.service, err = studio.NewService(studio.Dependencies{
		DB:          db,
		Generations: postgres.NewPostgresGenerationStore(db, logger),
		Artifacts:   postgres.NewPostgresArtifactStore(db, logger),
		Credits:     postgres.NewPostgresCreditStore(db, logger),
		Runner:      app.taskRunner,
		Generator:   generator,
		Classify:    gemini.IsTransient,
	}, studio.ConfigFromSettings(cfg.Generation), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create studio service: %w", err)
	}

	// Recovery in Start needs the factory to rebuild persisted tasks
	app.taskRunner.RegisterFactory(task.NewGenerationTaskFactory(app.service, logger))

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts background processing and serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	app.started = true

	router := newRouter(app.logger, app.jwtService, app.service)

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background processing. Generations interrupted here stay
// in processing state and resume on the next start.
func (app *application) cleanup() {
	if app.started {
		app.taskRunner.Stop()
	}
	app.logger.Info("Application shutdown completed")
}
