package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/cfn"

	"aurora_schema_migrator/internal/logging"
)

func TestFlushAfterRunsOnEveryOutcome(t *testing.T) {
	runErr := errors.New("migration failed")
	for _, want := range []error{nil, runErr} {
		var order []string
		handle := func(context.Context, cfn.Event) error {
			order = append(order, "handle")
			return want
		}
		flush := func(context.Context) error {
			order = append(order, "flush")
			return nil
		}

		err := flushAfter(handle, flush, logging.Discard())(context.Background(), cfn.Event{RequestType: cfn.RequestCreate})
		if !errors.Is(err, want) {
			t.Errorf("error = %v, want %v", err, want)
		}
		if len(order) != 2 || order[0] != "handle" || order[1] != "flush" {
			t.Errorf("order = %v, want handle then flush", order)
		}
	}
}

func TestFlushAfterIgnoresCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var flushCtxErr error
	handle := func(context.Context, cfn.Event) error { return nil }
	flush := func(ctx context.Context) error {
		flushCtxErr = ctx.Err()
		return errors.New("collector down")
	}

	if err := flushAfter(handle, flush, logging.Discard())(ctx, cfn.Event{}); err != nil {
		t.Fatalf("flush failure leaked into the handler result: %v", err)
	}
	if flushCtxErr != nil {
		t.Errorf("flush ran with a cancelled context: %v", flushCtxErr)
	}
}
