package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aurora_schema_migrator/internal/config"
	"aurora_schema_migrator/internal/db"
	"aurora_schema_migrator/internal/logging"
)

type stubExec struct {
	result  *db.Result
	err     error
	queries []string
}

func (s *stubExec) Execute(_ context.Context, sqlText string, _ []db.Param, _ string) (*db.Result, error) {
	s.queries = append(s.queries, sqlText)
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return &db.Result{}, nil
	}
	return s.result, nil
}

func (s *stubExec) BeginTransaction(context.Context) (string, error)  { return "", nil }
func (s *stubExec) CommitTransaction(context.Context, string) error   { return nil }
func (s *stubExec) RollbackTransaction(context.Context, string) error { return nil }

type stubLedger struct {
	versions []string
	err      error
}

func (l stubLedger) AppliedVersions(context.Context) ([]string, error) {
	return l.versions, l.err
}

func newTestServer(exec db.Executor, ledger Ledger) http.Handler {
	return New(config.Config{}, logging.Discard(), exec, ledger).routes()
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestPostsReturnsRecords(t *testing.T) {
	exec := &stubExec{result: &db.Result{Records: [][]db.Value{
		{db.LongValue(1), db.StringValue("hello"), db.NullValue()},
	}}}
	rec := serve(t, newTestServer(exec, stubLedger{}), http.MethodGet, "/posts")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"records":[[1,"hello",null]]}` {
		t.Errorf("body = %s", got)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing origin header: %v", rec.Header())
	}
	if len(exec.queries) != 1 || exec.queries[0] != "select * from posts" {
		t.Errorf("queries = %q", exec.queries)
	}
}

func TestPostsEmptyTable(t *testing.T) {
	rec := serve(t, newTestServer(&stubExec{}, stubLedger{}), http.MethodGet, "/posts")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"records":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestPostsQueryFailure(t *testing.T) {
	rec := serve(t, newTestServer(&stubExec{err: errors.New("down")}, stubLedger{}), http.MethodGet, "/posts")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != "query_failed" {
		t.Errorf("code = %q", body.Error.Code)
	}
	if body.Error.RequestID == "" {
		t.Error("error body has no request id")
	}
}

func TestPostsPreflight(t *testing.T) {
	exec := &stubExec{}
	rec := serve(t, newTestServer(exec, stubLedger{}), http.MethodOptions, "/posts")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for k, v := range CORSHeaders {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if len(exec.queries) != 0 {
		t.Errorf("preflight touched the database: %q", exec.queries)
	}
}

func TestHealth(t *testing.T) {
	rec := serve(t, newTestServer(&stubExec{}, stubLedger{}), http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = serve(t, newTestServer(&stubExec{err: errors.New("down")}, stubLedger{}), http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy status = %d", rec.Code)
	}
}

func TestMigrationsListsLedger(t *testing.T) {
	rec := serve(t, newTestServer(&stubExec{}, stubLedger{versions: []string{"0001_init", "0002_add_posts"}}), http.MethodGet, "/api/v1/migrations")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"versions":["0001_init","0002_add_posts"]}` {
		t.Errorf("body = %s", got)
	}

	rec = serve(t, newTestServer(&stubExec{}, stubLedger{err: errors.New("no table")}), http.MethodGet, "/api/v1/migrations")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRequestLoggerTagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := New(config.Config{}, logging.NewLoggerTo(&buf, "info"), &stubExec{}, stubLedger{}).routes()
	rec := serve(t, h, http.MethodGet, "/posts")

	var line struct {
		Msg       string `json:"msg"`
		RequestID string `json:"request_id"`
		Status    int    `json:"status"`
		Bytes     int    `json:"bytes"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line.Msg != "http_request" || line.RequestID == "" {
		t.Errorf("log line = %+v", line)
	}
	if line.Status != http.StatusOK || line.Bytes != rec.Body.Len() {
		t.Errorf("status = %d bytes = %d, response had %d bytes", line.Status, line.Bytes, rec.Body.Len())
	}
}
