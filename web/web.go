// Package web serves the read-only petition API.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/petwatch/petition"
	"github.com/hazyhaar/petwatch/store"
)

// Handler exposes store reads over HTTP. All endpoints are read-only; syncing
// stays the CLI's job.
type Handler struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates a Handler over an open store.
func New(st *store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: st, logger: logger}
}

// Router builds the chi router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})
	r.Get("/api/summary", h.summary)
	r.Get("/api/petitions/{source}/top", h.top)
	r.Get("/api/stats/daily", h.daily)
	return r
}

type sourceSummary struct {
	Petitions int `json:"petitions"`
	Votes     int `json:"votes"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]sourceSummary)
	for _, src := range []petition.Source{petition.SourcePresident, petition.SourceCabinet} {
		count, err := h.store.CountSource(r.Context(), src)
		if err != nil {
			h.fail(w, err)
			return
		}
		votes, err := h.store.VotesBySource(r.Context(), src)
		if err != nil {
			h.fail(w, err)
			return
		}
		total := 0
		for _, v := range votes {
			total += v
		}
		out[string(src)] = sourceSummary{Petitions: count, Votes: total}
	}
	writeJSON(w, 200, out)
}

type topRow struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Votes  int    `json:"votes"`
	URL    string `json:"url"`
}

func (h *Handler) top(w http.ResponseWriter, r *http.Request) {
	src, ok := parseSource(chi.URLParam(r, "source"))
	if !ok {
		writeJSON(w, 404, map[string]string{"error": "unknown source"})
		return
	}
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 100 {
			writeJSON(w, 400, map[string]string{"error": "n must be 1..100"})
			return
		}
		n = v
	}

	rows, err := h.store.TopByVotes(r.Context(), src, n)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]topRow, 0, len(rows))
	for _, p := range rows {
		out = append(out, topRow{
			ID: p.ExternalID, Title: p.Title, Status: string(p.Status),
			Votes: p.Votes, URL: p.URL,
		})
	}
	writeJSON(w, 200, out)
}

func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	src, ok := parseSource(r.URL.Query().Get("source"))
	if !ok {
		writeJSON(w, 400, map[string]string{"error": "source must be president or cabinet"})
		return
	}
	deltas, err := h.store.DailyDeltas(r.Context(), src)
	if err != nil {
		h.fail(w, err)
		return
	}
	if deltas == nil {
		deltas = []store.DailyDelta{}
	}
	writeJSON(w, 200, deltas)
}

func parseSource(raw string) (petition.Source, bool) {
	switch petition.Source(raw) {
	case petition.SourcePresident:
		return petition.SourcePresident, true
	case petition.SourceCabinet:
		return petition.SourceCabinet, true
	}
	return "", false
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("api request failed", "error", err)
	writeJSON(w, 500, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
