package httpserver

import (
	"context"
	"net/http"

	"aurora_schema_migrator/internal/db"
)

const postsQuery = "select * from posts"

// CORSHeaders are returned by the posts preflight. GET responses only carry
// the origin header.
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET,OPTIONS",
}

type PostsResponse struct {
	Records [][]db.Value `json:"records"`
}

// ListPosts runs the posts read and wraps its rows for JSON output.
func ListPosts(ctx context.Context, exec db.Executor) (PostsResponse, error) {
	res, err := exec.Execute(ctx, postsQuery, nil, "")
	if err != nil {
		return PostsResponse{}, err
	}
	records := res.Records
	if records == nil {
		records = [][]db.Value{}
	}
	return PostsResponse{Records: records}, nil
}

type PostsHandler struct {
	Exec   db.Executor
	Logger requestLogger
}

func (h PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", CORSHeaders["Access-Control-Allow-Origin"])
	resp, err := ListPosts(r.Context(), h.Exec)
	if err != nil {
		h.Logger.Error("list posts failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "query_failed", "failed to read posts")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h PostsHandler) Preflight(w http.ResponseWriter, _ *http.Request) {
	for k, v := range CORSHeaders {
		w.Header().Set(k, v)
	}
	w.WriteHeader(http.StatusOK)
}
