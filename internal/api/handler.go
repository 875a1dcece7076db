// Package api serves the stop and route finder over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Nitin1612/bus-tracking-app/internal/search"
	"github.com/Nitin1612/bus-tracking-app/internal/session"
	"github.com/Nitin1612/bus-tracking-app/internal/transit"
)

// Handler handles HTTP requests for catalog lookups and search sessions
type Handler struct {
	index    *transit.Index
	ranker   search.Ranker
	recent   transit.RecentSnapshot
	sessions *session.Store
}

// NewHandler creates a new handler over a loaded dataset
func NewHandler(idx *transit.Index, ranker search.Ranker, recent transit.RecentSnapshot, sessions *session.Store) *Handler {
	return &Handler{index: idx, ranker: ranker, recent: recent, sessions: sessions}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// decodeBody decodes a JSON request body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"stops":     len(h.index.Stops()),
		"routes":    len(h.index.Routes()),
		"timestamp": time.Now().UTC(),
	})
}

// Overview handles GET /api/overview
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	located := 0
	for _, s := range h.index.Stops() {
		if s.Position.Valid() {
			located++
		}
	}
	writeJSON(w, http.StatusOK, OverviewResponse{
		Stops:        len(h.index.Stops()),
		LocatedStops: located,
		Routes:       len(h.index.Routes()),
		Sessions:     h.sessions.Len(),
		CheckedAt:    time.Now().UTC(),
	})
}

// Suggest handles GET /api/suggest?q=
// Stateless ranking for clients that keep their own cursor.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	suggestions := h.ranker.Suggest(q, h.index.Stops(), h.index.Routes())

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, SuggestResponse{Query: q, Suggestions: suggestions, Count: len(suggestions)})
}

// Stops handles GET /api/stops?q=&limit=
// Returns matching stops, most-served first.
func (h *Handler) Stops(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", map[string]interface{}{
				"limit": v,
			})
			return
		}
		limit = n
	}
	stops := stopViews(h.index.StopsByService(r.URL.Query().Get("q"), limit))

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, StopsResponse{Stops: stops, Count: len(stops)})
}

// Recent handles GET /api/recent
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RecentResponse{
		Stops:  stopViews(h.recent.Stops),
		Routes: routeViews(h.recent.Routes),
	})
}
