// Package deploy runs schema migrations as a CloudFormation custom resource.
//
// Each lifecycle event produces exactly one report to the pre-signed response
// URL carried by the event. Delete events report success without touching the
// database: the schema is dropped together with the cluster.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"aurora_schema_migrator/internal/config"
	"aurora_schema_migrator/internal/migrate"
	"aurora_schema_migrator/internal/storage"
)

// ErrMigrationFailed is returned after a FAILED report has been attempted, so
// the Lambda invocation itself is marked as failed too.
var ErrMigrationFailed = errors.New("schema migration failed")

// Migrator is the part of migrate.Runner the handler drives.
type Migrator interface {
	Run(ctx context.Context, dir string) ([]storage.Script, migrate.Outcome, error)
}

// Report is the single terminal value sent back per invocation.
type Report struct {
	Status     cfn.StatusType
	Summary    string
	PhysicalID string
	Reason     string
}

// Reporter delivers a Report for the given event.
type Reporter interface {
	Report(ctx context.Context, event cfn.Event, report Report) error
}

type Handler struct {
	migrator   Migrator
	reporter   Reporter
	scriptsDir string
	physicalID string
	logger     *slog.Logger
}

func NewHandler(migrator Migrator, reporter Reporter, cfg config.MigrationConfig, logger *slog.Logger) *Handler {
	return &Handler{
		migrator:   migrator,
		reporter:   reporter,
		scriptsDir: cfg.ScriptsPath,
		physicalID: cfg.PhysicalID,
		logger:     logger,
	}
}

// Handle is the Lambda entrypoint for custom resource events.
func (h *Handler) Handle(ctx context.Context, event cfn.Event) error {
	logger := h.logger.With(
		"run_id", uuid.NewString(),
		"request_id", event.RequestID,
		"request_type", string(event.RequestType),
	)

	if event.RequestType == cfn.RequestDelete {
		logger.Info("delete event, nothing to migrate")
		return h.send(ctx, logger, event, Report{Status: cfn.StatusSuccess, Summary: "Deleted successfully"})
	}

	logger.Info("input event",
		"stack_id", event.StackID,
		"logical_resource_id", event.LogicalResourceID,
		"scripts_path", h.scriptsDir,
	)

	scripts, out, err := h.migrator.Run(ctx, h.scriptsDir)
	if err != nil {
		logger.Error("migration failed", "error", err, "applied", out.Applied)
		runErr := fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		// failure detail lives in the log stream, not in the report
		report := Report{Status: cfn.StatusFailed, Reason: logStreamReason()}
		if sendErr := h.send(ctx, logger, event, report); sendErr != nil {
			return errors.Join(runErr, sendErr)
		}
		return runErr
	}

	files := make([]string, 0, len(scripts))
	for _, s := range scripts {
		files = append(files, s.FileName())
	}
	logger.Info("ran migration successfully", "applied", out.Applied, "skipped", out.Skipped)
	return h.send(ctx, logger, event, Report{
		Status:  cfn.StatusSuccess,
		Summary: fmt.Sprintf("Ran migration successfully for these files: %v", files),
	})
}

func (h *Handler) send(ctx context.Context, logger *slog.Logger, event cfn.Event, report Report) error {
	report.PhysicalID = h.physicalID
	if err := h.reporter.Report(ctx, event, report); err != nil {
		logger.Error("send report failed", "status", string(report.Status), "error", err)
		return fmt.Errorf("send %s report: %w", report.Status, err)
	}
	logger.Info("report sent", "status", string(report.Status), "physical_id", report.PhysicalID)
	return nil
}

func logStreamReason() string {
	if lambdacontext.LogStreamName == "" {
		return "See the details in the function logs"
	}
	return "See the details in CloudWatch Log Stream: " + lambdacontext.LogStreamName
}

// ResponseURLReporter PUTs the report to the event's pre-signed S3 URL.
type ResponseURLReporter struct{}

func (ResponseURLReporter) Report(_ context.Context, event cfn.Event, report Report) error {
	resp := cfn.NewResponse(&event)
	resp.Status = report.Status
	resp.PhysicalResourceID = report.PhysicalID
	resp.Reason = report.Reason
	if report.Status == cfn.StatusSuccess {
		resp.Data = map[string]interface{}{"Response": report.Summary}
	}
	return resp.Send()
}
