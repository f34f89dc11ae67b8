package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"aurora_schema_migrator/internal/config"
	"aurora_schema_migrator/internal/db"
	httpserver "aurora_schema_migrator/internal/http"
	"aurora_schema_migrator/internal/logging"
	"aurora_schema_migrator/internal/migrate"
	"aurora_schema_migrator/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithDotenv(".env")
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	tel, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	exec, err := db.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer exec.Close()

	runner := migrate.New(exec, logger, cfg.Migration.LedgerTable)
	if _, out, err := runner.Run(ctx, cfg.Migration.ScriptsPath); err != nil {
		logger.Error("migrations failed", "error", err, "applied", out.Applied)
		os.Exit(1)
	}

	server := httpserver.New(cfg, logger, exec, runner)
	if err := server.Start(ctx); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
