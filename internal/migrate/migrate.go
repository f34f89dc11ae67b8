package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"aurora_schema_migrator/internal/db"
	"aurora_schema_migrator/internal/storage"
)

const DefaultLedgerTable = "schema_version"

type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Runner applies bundled migration scripts through a statement executor and
// records each applied version in the ledger table.
//
// Runs are not coordinated with each other: two runners against the same
// cluster can both see a version as missing. Callers must serialize them.
type Runner struct {
	exec   db.Executor
	logger Logger
	table  string
	tracer trace.Tracer
}

// Outcome lists script file names by what a run did with them, in order.
type Outcome struct {
	Processed []string
	Applied   []string
	Skipped   []string
}

// New returns a Runner. ledgerTable must be a plain identifier; it is
// interpolated into the ledger statements.
func New(exec db.Executor, logger Logger, ledgerTable string) *Runner {
	if ledgerTable == "" {
		ledgerTable = DefaultLedgerTable
	}
	return &Runner{
		exec:   exec,
		logger: logger,
		table:  ledgerTable,
		tracer: otel.Tracer("aurora_schema_migrator/internal/migrate"),
	}
}

// Run discovers the scripts under dir and applies the ones not yet recorded.
func (r *Runner) Run(ctx context.Context, dir string) ([]storage.Script, Outcome, error) {
	scripts, err := r.DiscoverScripts(dir)
	if err != nil {
		return nil, Outcome{}, err
	}
	out, err := r.Up(ctx, scripts)
	return scripts, out, err
}

func (r *Runner) DiscoverScripts(dir string) ([]storage.Script, error) {
	scripts, err := storage.DiscoverScripts(dir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	return scripts, nil
}

// Up ensures the ledger exists and applies every script whose version is not
// in it yet, strictly in the given order. The first failure stops the run.
func (r *Runner) Up(ctx context.Context, scripts []storage.Script) (Outcome, error) {
	var out Outcome
	if err := r.EnsureLedger(ctx); err != nil {
		return out, err
	}

	for _, script := range scripts {
		applied, err := r.IsApplied(ctx, script.Version)
		if err != nil {
			return out, fmt.Errorf("check migration %s: %w", script.Version, err)
		}
		if applied {
			r.logger.Info("migration already applied", "version", script.Version)
			out.Skipped = append(out.Skipped, script.FileName())
			out.Processed = append(out.Processed, script.FileName())
			continue
		}
		r.logger.Info("found an SQL script", "path", script.Path, "statements", len(script.Statements))
		if err := r.ApplyScript(ctx, script); err != nil {
			return out, err
		}
		r.logger.Info("migration applied", "version", script.Version, "checksum", script.Checksum)
		out.Applied = append(out.Applied, script.FileName())
		out.Processed = append(out.Processed, script.FileName())
	}
	return out, nil
}

func (r *Runner) EnsureLedger(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  version_num VARCHAR(%d) NOT NULL PRIMARY KEY
)`, r.table, storage.MaxVersionLength)
	if _, err := r.exec.Execute(ctx, stmt, nil, ""); err != nil {
		return fmt.Errorf("ensure ledger: %w", err)
	}
	return nil
}

// IsApplied reports whether the ledger holds a row for version.
func (r *Runner) IsApplied(ctx context.Context, version string) (bool, error) {
	res, err := r.exec.Execute(ctx,
		fmt.Sprintf(`SELECT version_num FROM %s WHERE version_num = :version`, r.table),
		[]db.Param{{Name: "version", Value: db.StringValue(version)}}, "")
	if err != nil {
		return false, err
	}
	return len(res.Records) > 0, nil
}

// ApplyScript executes the script's statements and its ledger row inside one
// transaction. Any failure rolls the whole file back.
func (r *Runner) ApplyScript(ctx context.Context, script storage.Script) error {
	ctx, span := r.tracer.Start(ctx, "migrate.apply_script", trace.WithAttributes(
		attribute.String("migration.version", script.Version),
		attribute.Int("migration.statements", len(script.Statements)),
	))
	defer span.End()

	err := r.applyScript(ctx, script)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *Runner) applyScript(ctx context.Context, script storage.Script) error {
	txID, err := r.exec.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("apply migration %s: %w", script.Version, err)
	}

	if err := r.execInTx(ctx, txID, script); err != nil {
		// ctx may already be done; the rollback still has to go out
		if rbErr := r.exec.RollbackTransaction(context.WithoutCancel(ctx), txID); rbErr != nil {
			r.logger.Error("rollback failed", "version", script.Version, "error", rbErr)
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return fmt.Errorf("apply migration %s: %w", script.Version, err)
	}

	if err := r.exec.CommitTransaction(ctx, txID); err != nil {
		return fmt.Errorf("commit migration %s: %w", script.Version, err)
	}
	return nil
}

func (r *Runner) execInTx(ctx context.Context, txID string, script storage.Script) error {
	for i, stmt := range script.Statements {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		// migration files are trusted DDL/DML and go out as literal text
		if _, err := r.exec.Execute(ctx, stmt, nil, txID); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	if _, err := r.exec.Execute(ctx,
		fmt.Sprintf(`INSERT INTO %s (version_num) VALUES (:version)`, r.table),
		[]db.Param{{Name: "version", Value: db.StringValue(script.Version)}}, txID); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return nil
}

// AppliedVersions lists the ledger in version order.
func (r *Runner) AppliedVersions(ctx context.Context) ([]string, error) {
	res, err := r.exec.Execute(ctx, fmt.Sprintf(`SELECT version_num FROM %s ORDER BY version_num`, r.table), nil, "")
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.table, err)
	}
	versions := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		if len(rec) > 0 {
			versions = append(versions, rec[0].String())
		}
	}
	return versions, nil
}
