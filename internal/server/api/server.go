// Package api exposes the shared endpoint's REST surface. The dialect is
// PostgREST-flavored: eq./in. filters in query strings, select=id
// projections, and database error signatures in failure bodies, matching
// what the client's remote layer expects.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/showmeapp/showme/internal/logging"
	"github.com/showmeapp/showme/internal/server/storage"
)

// NewServer creates an HTTP handler with all routes configured.
func NewServer(log logging.Logger, store storage.Store) http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	maps := NewMapHandler(store, log)
	pins := NewPinHandler(store, log)

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "", "database unreachable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Post("/maps", maps.Create)
	mux.Get("/maps", maps.List)
	mux.Delete("/maps", maps.Delete)

	mux.Post("/pins", pins.Create)
	mux.Get("/pins", pins.List)
	mux.Delete("/pins", pins.Delete)

	return mux
}
