package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mbarlow/lectern-api/internal/api"
	"github.com/mbarlow/lectern-api/internal/config"
	"github.com/mbarlow/lectern-api/internal/events"
	"github.com/mbarlow/lectern-api/internal/platform/gemini"
	"github.com/mbarlow/lectern-api/internal/platform/pipelineapi"
	"github.com/mbarlow/lectern-api/internal/platform/postgres"
	taskredis "github.com/mbarlow/lectern-api/internal/platform/redis"
	"github.com/mbarlow/lectern-api/internal/redact"
	"github.com/mbarlow/lectern-api/internal/service"
	"github.com/mbarlow/lectern-api/internal/task"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// application holds the wired components of the running server.
type application struct {
	config *config.Config
	logger *slog.Logger

	db    *sql.DB
	redis *goredis.Client

	manager *task.Manager
	sweeper *task.Sweeper

	taskHandler    *api.TaskHandler
	contentHandler *api.ContentHandler
}

// newApplication wires the full dependency graph from configuration:
// database, task store, pipeline collaborators, task manager, sweeper,
// and HTTP handlers. It runs pending database migrations before
// returning.
func newApplication(cfg *config.Config) (*application, error) {
	logger := slog.Default()

	db, err := openDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		closeQuietly(db, logger)
		return nil, err
	}

	redisClient, err := openRedis(cfg, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, err
	}

	taskStore := taskredis.NewTaskStore(redisClient, taskredis.Options{
		RecordTTL:    cfg.Task.RecordTTL,
		HistoryLimit: cfg.Task.HistoryLimit,
	})

	pipeline, err := buildPipeline(cfg, db, logger)
	if err != nil {
		closeQuietly(db, logger)
		closeRedisQuietly(redisClient, logger)
		return nil, err
	}

	admission := task.NewAdmissionController(taskStore, cfg.Task.MaxPerUser, cfg.Task.MaxGlobal, logger)

	emitter := events.NewInMemoryEmitter(logger)
	emitter.RegisterHandler(events.NewLogHandler(logger))

	manager, err := task.NewManager(taskStore, admission, pipeline, emitter, cfg.Task.HistoryLimit, logger)
	if err != nil {
		closeQuietly(db, logger)
		closeRedisQuietly(redisClient, logger)
		return nil, fmt.Errorf("failed to create task manager: %w", err)
	}

	sweeper := task.NewSweeper(taskStore, cfg.Task.StaleAge, cfg.Task.SweepInterval, logger)

	return &application{
		config:         cfg,
		logger:         logger,
		db:             db,
		redis:          redisClient,
		manager:        manager,
		sweeper:        sweeper,
		taskHandler:    api.NewTaskHandler(manager, logger),
		contentHandler: api.NewContentHandler(manager, logger),
	}, nil
}

// buildPipeline assembles the processing pipeline from its external
// collaborators. The extractor and screener are wired only when their
// endpoints are configured; without them the PDF task kinds are refused
// at run time.
func buildPipeline(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*service.Pipeline, error) {
	httpClient := &http.Client{}

	files := pipelineapi.NewFileStoreClient(cfg.Pipeline.StorageAPIURL, httpClient)
	transcriber := pipelineapi.NewTranscriberClient(cfg.Pipeline.TranscriptionAPIURL, httpClient)

	var extractor service.VisualExtractor
	var screener service.ImageScreener
	if cfg.Pipeline.ImageSearchAPIURL != "" {
		extractor = pipelineapi.NewVisualExtractorClient(cfg.Pipeline.ImageSearchAPIURL, httpClient)
		screener = pipelineapi.NewImageScreenerClient(cfg.Pipeline.ImageSearchAPIURL, cfg.Pipeline.ImageSearchAPIKey, httpClient)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	generator, err := gemini.NewGenerator(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create content generator: %w", err)
	}

	contentStore := postgres.NewContentStore(db, logger)

	pipeline, err := service.NewPipeline(files, transcriber, generator, extractor, screener, contentStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return pipeline, nil
}

// openDatabase connects to the content database and verifies the
// connection with a short ping.
func openDatabase(cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to ping database: %s", redact.Error(err))
	}

	logger.Info("database connection established")
	return db, nil
}

// openRedis connects to the task store backend and verifies the
// connection with a short ping.
func openRedis(cfg *config.Config, logger *slog.Logger) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		closeRedisQuietly(client, logger)
		return nil, fmt.Errorf("failed to ping redis: %s", redact.Error(err))
	}

	logger.Info("redis connection established")
	return client, nil
}

// cleanup releases the application's external resources. It is called
// after the HTTP server has stopped accepting requests.
func (app *application) cleanup() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	app.sweeper.Stop()

	if err := app.manager.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("task manager shutdown incomplete", "error", err)
	}

	closeRedisQuietly(app.redis, app.logger)
	closeQuietly(app.db, app.logger)
}

func closeQuietly(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close database connection", "error", err)
	}
}

func closeRedisQuietly(client *goredis.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Error("failed to close redis connection", "error", err)
	}
}
