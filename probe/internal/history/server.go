package history

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler returns a read-only HTTP API over the store:
//
//	GET /runs            recent outcomes (?limit=N)
//	GET /runs/{runID}    all scenario outcomes of one run
func (s *Store) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/runs", s.handleRecent)
	r.Get("/runs/{runID}", s.handleRun)
	return r
}

func (s *Store) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	outs, err := s.Recent(r.Context(), limit)
	if err != nil {
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, outs)
}

func (s *Store) handleRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	outs, err := s.Run(r.Context(), runID)
	if err != nil {
		jsonErr(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(outs) == 0 {
		jsonErr(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, outs)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
