package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type recordingLogger struct {
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, _ ...any)  { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }

type stubExec struct {
	err    error
	closed bool
}

func (s *stubExec) Execute(context.Context, string, []Param, string) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Result{Records: [][]Value{{LongValue(1)}}}, nil
}
func (s *stubExec) BeginTransaction(context.Context) (string, error)  { return "tx", nil }
func (s *stubExec) CommitTransaction(context.Context, string) error   { return nil }
func (s *stubExec) RollbackTransaction(context.Context, string) error { return nil }
func (s *stubExec) Close() error                                      { s.closed = true; return nil }

func TestInstrumentLogsMalformedStatements(t *testing.T) {
	logger := &recordingLogger{}
	stub := &stubExec{err: &StatementError{SQL: "BAD", Err: errors.New("syntax")}}
	exec := Instrument(stub, logger)

	if _, err := exec.Execute(context.Background(), "BAD", nil, ""); !errors.Is(err, ErrMalformedStatement) {
		t.Fatalf("error = %v", err)
	}
	if len(logger.errors) != 1 || logger.errors[0] != "malformed statement" {
		t.Errorf("error logs = %v", logger.errors)
	}
	if len(logger.infos) != 1 {
		t.Errorf("info logs = %v, want the statement logged once", logger.infos)
	}
}

func TestInstrumentDoesNotFlagTransportErrors(t *testing.T) {
	logger := &recordingLogger{}
	exec := Instrument(&stubExec{err: errors.New("connection reset")}, logger)
	if _, err := exec.Execute(context.Background(), "SELECT 1", nil, ""); err == nil {
		t.Fatal("expected error")
	}
	if len(logger.errors) != 0 {
		t.Errorf("transport error logged as malformed: %v", logger.errors)
	}
}

func TestInstrumentPassesThrough(t *testing.T) {
	stub := &stubExec{}
	exec := Instrument(stub, &recordingLogger{})
	res, err := exec.Execute(context.Background(), "SELECT 1", nil, "")
	if err != nil || len(res.Records) != 1 {
		t.Fatalf("Execute = %v, %v", res, err)
	}
	if err := exec.Close(); err != nil || !stub.closed {
		t.Fatalf("Close did not reach the wrapped executor")
	}
}

func TestResultRowsJSON(t *testing.T) {
	res := &Result{Records: [][]Value{{LongValue(1), StringValue("hello"), NullValue()}}}
	body, err := json.Marshal(res.Records)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `[[1,"hello",null]]` {
		t.Errorf("json = %s", body)
	}
}
