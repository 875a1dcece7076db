package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Nitin1612/bus-tracking-app/internal/location"
	"github.com/Nitin1612/bus-tracking-app/internal/selection"
	"github.com/Nitin1612/bus-tracking-app/internal/session"
	"github.com/Nitin1612/bus-tracking-app/internal/waypoint"
)

type selectRequest struct {
	Kind  selection.InputKind `json:"kind"`
	Value json.RawMessage     `json:"value"`
	locationFields
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "sessionId")
	s, ok := h.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", map[string]interface{}{
			"sessionId": id,
		})
		return nil, false
	}
	return s, true
}

// planContext detaches a pending location request from the HTTP request; the
// planner's own timeout bounds it.
func planContext(r *http.Request) context.Context { return context.WithoutCancel(r.Context()) }

// CreateSession handles POST /api/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	w.Header().Set("Location", "/api/sessions/"+s.ID)
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// GetSession handles GET /api/sessions/{sessionId}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// DeleteSession handles DELETE /api/sessions/{sessionId}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	if !h.sessions.Delete(id) {
		writeError(w, http.StatusNotFound, "Session not found", map[string]interface{}{
			"sessionId": id,
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetQuery handles PUT /api/sessions/{sessionId}/query
// Called on every keystroke; replaces the query and resets the cursor.
func (h *Handler) SetQuery(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req queryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}
	suggestions := s.SetQuery(req.Query)
	writeJSON(w, http.StatusOK, SuggestResponse{Query: req.Query, Suggestions: suggestions, Count: len(suggestions)})
}

// MoveCursor handles POST /api/sessions/{sessionId}/cursor
func (h *Handler) MoveCursor(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req cursorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}
	switch strings.ToLower(req.Direction) {
	case "down":
		s.MoveDown()
	case "up":
		s.MoveUp()
	default:
		writeError(w, http.StatusBadRequest, `direction must be "up" or "down"`, map[string]interface{}{
			"direction": req.Direction,
		})
		return
	}

	snap := s.Snapshot()
	resp := CursorResponse{Cursor: snap.Cursor}
	if snap.Cursor >= 0 && snap.Cursor < len(snap.Suggestions) {
		active := snap.Suggestions[snap.Cursor]
		resp.Active = &active
	}
	writeJSON(w, http.StatusOK, resp)
}

// Confirm handles POST /api/sessions/{sessionId}/confirm
// Resolves the highlighted suggestion, or the typed query as free text.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req locationFields
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}
	plan, err := s.Confirm(planContext(r), location.FromRequest(req.Lat, req.Lon))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Selection rejected", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// Select handles POST /api/sessions/{sessionId}/select
// The value must be a JSON string; anything else is rejected rather than coerced.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}
	var value string
	if len(req.Value) > 0 {
		if err := json.Unmarshal(req.Value, &value); err != nil {
			writeError(w, http.StatusBadRequest, "value must be a string", map[string]interface{}{
				"value": string(req.Value),
			})
			return
		}
	}

	in := selection.Input{Kind: req.Kind, Value: value}
	plan, err := s.Select(planContext(r), in, location.FromRequest(req.Lat, req.Lon))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Selection rejected", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// Waypoints handles GET /api/sessions/{sessionId}/waypoints
// Returns the latest plan; status "pending" means the device location is
// still being resolved.
func (h *Handler) Waypoints(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	plan := s.Plan()
	if plan.Status == waypoint.StatusPending {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, http.StatusOK, plan)
}
