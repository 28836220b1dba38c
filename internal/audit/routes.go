package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/neurosphere/internal/api"
)

// defaultLimit caps history responses when no limit is given.
const defaultLimit = 50

// RegisterRoutes mounts the history endpoints on the given router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/api/config/history", handleRevisions(store))
	r.Get("/api/telemetry/history", handleSnapshots(store))
}

func handleRevisions(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := RevisionFilter{
			Path:  q.Get("path"),
			Limit: parseLimit(q.Get("limit")),
		}
		if v := q.Get("since"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				filter.Since = &t
			}
		}

		revs, err := store.Revisions(r.Context(), filter)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "could not read config history")
			return
		}
		api.WriteJSON(w, http.StatusOK, revs)
	}
}

func handleSnapshots(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sums, err := store.Snapshots(r.Context(), parseLimit(r.URL.Query().Get("limit")))
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, "could not read telemetry history")
			return
		}
		api.WriteJSON(w, http.StatusOK, sums)
	}
}

func parseLimit(v string) int {
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return defaultLimit
}
