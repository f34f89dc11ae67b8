package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"

	"aurora_schema_migrator/internal/config"
	"aurora_schema_migrator/internal/db"
	"aurora_schema_migrator/internal/deploy"
	"aurora_schema_migrator/internal/logging"
	"aurora_schema_migrator/internal/migrate"
	"aurora_schema_migrator/internal/telemetry"
)

type handleFunc func(ctx context.Context, event cfn.Event) error

// flushAfter exports the invocation's spans before Lambda freezes the process.
func flushAfter(handle handleFunc, flush func(context.Context) error, logger *slog.Logger) handleFunc {
	return func(ctx context.Context, event cfn.Event) error {
		err := handle(ctx, event)
		if flushErr := flush(context.WithoutCancel(ctx)); flushErr != nil {
			logger.Error("flush traces failed", "error", flushErr)
		}
		return err
	}
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	tel, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("telemetry setup: %v", err)
	}

	exec, err := db.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open executor: %v", err)
	}

	runner := migrate.New(exec, logger, cfg.Migration.LedgerTable)
	handler := deploy.NewHandler(runner, deploy.ResponseURLReporter{}, cfg.Migration, logger)

	handle := handleFunc(handler.Handle)
	if tel.Enabled() {
		handle = flushAfter(handle, tel.Flush, logger)
	}

	lambda.StartWithOptions(handle, lambda.WithEnableSIGTERM(func() {
		_ = tel.Shutdown(context.Background())
		_ = exec.Close()
	}))
}
