package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aviraln/nudge/internal/assistant"
	"github.com/aviraln/nudge/internal/auth"
	"github.com/aviraln/nudge/internal/clarify"
	"github.com/aviraln/nudge/internal/config"
	"github.com/aviraln/nudge/internal/platform/gemini"
	"github.com/aviraln/nudge/internal/platform/postgres"
	"github.com/aviraln/nudge/internal/platform/webhook"
	"github.com/aviraln/nudge/internal/reminder"
	"github.com/aviraln/nudge/internal/service"
	"github.com/aviraln/nudge/internal/store"
)

// application holds the fully wired dependency graph.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore   store.TaskStore
	tokens      auth.TokenService
	scheduler   *reminder.Scheduler
	taskService service.TaskService
	clarifier   *clarify.Manager
	assistant   *assistant.Assistant
	sweeper     *service.Sweeper
}

// newApplication wires up every component from configuration.
// The caller owns the lifecycle: call start after construction and
// cleanup on the way out.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		closeDatabase(db, logger)
		return nil, err
	}

	taskStore := postgres.NewPostgresTaskStore(db, logger)

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, 0)
	if err != nil {
		closeDatabase(db, logger)
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	deliverer, err := webhook.NewDeliverer(cfg.Delivery, logger)
	if err != nil {
		closeDatabase(db, logger)
		return nil, fmt.Errorf("failed to create reminder deliverer: %w", err)
	}

	scheduler := reminder.NewScheduler(taskStore, deliverer, reminder.Config{
		RetryCap:     cfg.Reminder.RetryCap,
		RetryBackoff: cfg.Reminder.RetryBackoff(),
	}, logger)

	taskService, err := service.NewTaskService(taskStore, scheduler, logger)
	if err != nil {
		closeDatabase(db, logger)
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	extractor, err := gemini.NewExtractor(ctx, logger, cfg.LLM)
	if err != nil {
		closeDatabase(db, logger)
		return nil, fmt.Errorf("failed to create intent extractor: %w", err)
	}

	clarifier := clarify.NewManager(cfg.Clarification.SessionTimeout(), logger)

	asst, err := assistant.New(extractor, taskService, clarifier, logger)
	if err != nil {
		closeDatabase(db, logger)
		return nil, fmt.Errorf("failed to create assistant: %w", err)
	}

	sweeper := service.NewSweeper(taskService, clarifier, service.SweeperConfig{
		Interval:       cfg.Sweeper.Interval(),
		ValidityWindow: cfg.Sweeper.ValidityWindow(),
	}, logger)

	return &application{
		config:      cfg,
		logger:      logger,
		db:          db,
		taskStore:   taskStore,
		tokens:      tokens,
		scheduler:   scheduler,
		taskService: taskService,
		clarifier:   clarifier,
		assistant:   asst,
		sweeper:     sweeper,
	}, nil
}

// start brings up the background loops and re-arms reminders that were
// pending before the last shutdown.
func (app *application) start(ctx context.Context) error {
	app.scheduler.Start()
	app.sweeper.Start()

	pending, err := app.taskStore.ListPendingReminders(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending reminders: %w", err)
	}
	app.scheduler.Rearm(pending)

	return nil
}

// cleanup stops the background loops and releases resources.
func (app *application) cleanup() {
	app.sweeper.Stop()
	app.scheduler.Stop()
	closeDatabase(app.db, app.logger)
}
