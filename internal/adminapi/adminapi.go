// Package adminapi is a thin chi HTTP adapter over internal/admin. The
// host's REST/transport layer is out of scope (spec §1 Non-goals); this
// package exists only as a reference wiring of the chi router the teacher
// already depends on, not as a production entry point.
package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"seismic/internal/admin"
	"seismic/internal/sparseerr"
)

// Mount registers the warmup/clear-cache routes on r.
func Mount(r chi.Router, mgr *admin.Manager) {
	r.Post("/warmup/{indices}", handle(mgr.Warmup))
	r.Post("/clear_cache/{indices}", handle(mgr.ClearCache))
}

func handle(op func(ctx context.Context, indices []string) (admin.BroadcastResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		indices := strings.Split(chi.URLParam(req, "indices"), ",")
		result, err := op(req.Context(), indices)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if sparseerr.Is(err, sparseerr.KindInvalidIndices) {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
