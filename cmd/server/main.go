// Package main implements the entry point for the lectern-api server,
// which turns uploaded lecture media into aligned educational content
// through tracked background tasks.
package main

import (
	"log"
	"log/slog"

	"github.com/mbarlow/lectern-api/internal/config"
	"github.com/mbarlow/lectern-api/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if _, err := logger.Setup(cfg.Server); err != nil {
		log.Fatalf("failed to set up logger: %v", err)
	}

	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_tasks_per_user", cfg.Task.MaxPerUser,
		"max_tasks_global", cfg.Task.MaxGlobal)

	app, err := newApplication(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := app.serve(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}
