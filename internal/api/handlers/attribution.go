package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/patternops/governor/internal/service"
)

type AttributionHandler struct {
	attributions *service.AttributionService
}

func NewAttributionHandler(attributions *service.AttributionService) *AttributionHandler {
	return &AttributionHandler{attributions: attributions}
}

type bindAttributionRequest struct {
	PatternID     string         `json:"pattern_id"`
	SessionID     string         `json:"session_id"`
	RunID         *string        `json:"run_id,omitempty"`
	Justification map[string]any `json:"justification,omitempty"`
}

func (h *AttributionHandler) Bind(w http.ResponseWriter, r *http.Request) {
	var req bindAttributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patternID, err := uuid.Parse(req.PatternID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pattern_id")
		return
	}

	record, err := h.attributions.BindAttribution(r.Context(), patternID, req.SessionID, req.RunID, req.Justification)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPatternNotFound):
			writeError(w, http.StatusNotFound, "pattern not found")
		case errors.Is(err, service.ErrConcurrentModification):
			writeError(w, http.StatusConflict, "concurrent modification; retry")
		default:
			writeError(w, http.StatusInternalServerError, "failed to bind attribution")
		}
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (h *AttributionHandler) RecomputeTier(w http.ResponseWriter, r *http.Request) {
	patternID, err := uuid.Parse(r.URL.Query().Get("pattern_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pattern_id")
		return
	}

	tier, err := h.attributions.RecomputeTier(r.Context(), patternID)
	if err != nil {
		if errors.Is(err, service.ErrPatternNotFound) {
			writeError(w, http.StatusNotFound, "pattern not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to recompute tier")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"evidence_tier": tier})
}
