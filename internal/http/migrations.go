package httpserver

import "net/http"

type MigrationHandler struct {
	Ledger Ledger
	Logger requestLogger
}

type migrationsResponse struct {
	Versions []string `json:"versions"`
}

func (h MigrationHandler) List(w http.ResponseWriter, r *http.Request) {
	versions, err := h.Ledger.AppliedVersions(r.Context())
	if err != nil {
		h.Logger.Error("list applied migrations failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "ledger_unavailable", "failed to read migration ledger")
		return
	}
	if versions == nil {
		versions = []string{}
	}
	writeJSON(w, http.StatusOK, migrationsResponse{Versions: versions})
}
