package db

import (
	"context"

	"aurora_schema_migrator/internal/config"
)

// Open builds the statement executor selected by cfg.Backend, wrapped with
// logging and tracing.
func Open(ctx context.Context, cfg config.Config, logger Logger) (ExecCloser, error) {
	var exec ExecCloser
	switch cfg.Backend {
	case config.BackendDataAPI:
		client, err := NewDataAPIClient(ctx, cfg.DataAPI)
		if err != nil {
			return nil, err
		}
		exec = NewDataAPIExecutor(client, cfg.DataAPI)
	default:
		sqlExec, err := OpenSQL(cfg.Backend, cfg.DSN)
		if err != nil {
			return nil, err
		}
		exec = sqlExec
	}
	return Instrument(exec, logger), nil
}
