package db

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxTracedStatement = 256

type instrumented struct {
	next   ExecCloser
	logger Logger
	tracer trace.Tracer
}

// Instrument wraps an executor with statement logging and a span per call.
// Malformed statement faults are logged with the full SQL text.
func Instrument(next ExecCloser, logger Logger) ExecCloser {
	return &instrumented{
		next:   next,
		logger: logger,
		tracer: otel.Tracer("aurora_schema_migrator/internal/db"),
	}
}

func (i *instrumented) Execute(ctx context.Context, sql string, params []Param, txID string) (*Result, error) {
	ctx, span := i.tracer.Start(ctx, "db.execute", trace.WithAttributes(
		attribute.String("db.statement", truncate(sql, maxTracedStatement)),
		attribute.Int("db.params", len(params)),
		attribute.Bool("db.in_transaction", txID != ""),
	))
	defer span.End()

	i.logger.Info("sql query", "sql", sql, "in_transaction", txID != "")
	res, err := i.next.Execute(ctx, sql, params, txID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrMalformedStatement) {
			i.logger.Error("malformed statement", "sql", sql, "error", err)
		}
		return nil, err
	}
	return res, nil
}

func (i *instrumented) BeginTransaction(ctx context.Context) (string, error) {
	ctx, span := i.tracer.Start(ctx, "db.begin")
	defer span.End()
	id, err := i.next.BeginTransaction(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return id, err
}

func (i *instrumented) CommitTransaction(ctx context.Context, txID string) error {
	ctx, span := i.tracer.Start(ctx, "db.commit")
	defer span.End()
	err := i.next.CommitTransaction(ctx, txID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (i *instrumented) RollbackTransaction(ctx context.Context, txID string) error {
	ctx, span := i.tracer.Start(ctx, "db.rollback")
	defer span.End()
	err := i.next.RollbackTransaction(ctx, txID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (i *instrumented) Close() error { return i.next.Close() }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
