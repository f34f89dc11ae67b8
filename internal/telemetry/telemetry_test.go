package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.opentelemetry.io/otel"

	"aurora_schema_migrator/internal/config"
)

func TestSetupWithoutEndpointIsDisabled(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Enabled() {
		t.Fatal("provider enabled without an endpoint")
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Errorf("Flush: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestFlushExportsBatchedSpans(t *testing.T) {
	var exports atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/traces" {
			exports.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	ctx := context.Background()
	p, err := Setup(ctx, config.TelemetryConfig{Endpoint: collector.URL, ServiceName: "test"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer p.Shutdown(ctx)

	_, span := otel.Tracer("test").Start(ctx, "migrate.apply_script")
	span.End()

	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if exports.Load() == 0 {
		t.Fatal("span still batched after Flush")
	}
}
