package httpserver

import (
	"context"
	"net/http"
	"time"

	"aurora_schema_migrator/internal/db"
)

type HealthHandler struct {
	Exec db.Executor
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.Exec.Execute(ctx, "SELECT 1", nil, ""); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "service_unhealthy", "database unreachable")
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		DB:     "ok",
	})
}
