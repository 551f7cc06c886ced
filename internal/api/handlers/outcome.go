package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/patternops/governor/internal/domain"
	"github.com/patternops/governor/internal/service"
)

type OutcomeHandler struct {
	metrics *service.MetricsService
}

func NewOutcomeHandler(metrics *service.MetricsService) *OutcomeHandler {
	return &OutcomeHandler{metrics: metrics}
}

type recordOutcomeRequest struct {
	PatternIDs []string `json:"pattern_ids"`
	SessionID  string   `json:"session_id"`
	Success    bool     `json:"success"`
}

// RecordOutcome applies one session outcome to every pattern injected into
// the session. The upstream transport de-duplicates by (session, pattern).
func (h *OutcomeHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	var req recordOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.PatternIDs) == 0 {
		writeError(w, http.StatusBadRequest, "pattern_ids is required")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.PatternIDs))
	for _, raw := range req.PatternIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pattern id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	updated, err := h.metrics.RecordOutcomeBatch(r.Context(), ids, req.SessionID, req.Success)
	if err != nil {
		h.writeMetricsError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"patterns": updated})
}

type recordInjectionRequest struct {
	PatternID string `json:"pattern_id"`
	SessionID string `json:"session_id"`
}

func (h *OutcomeHandler) RecordInjection(w http.ResponseWriter, r *http.Request) {
	var req recordInjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := uuid.Parse(req.PatternID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pattern_id")
		return
	}

	p, err := h.metrics.RecordInjection(r.Context(), id, req.SessionID)
	if err != nil {
		h.writeMetricsError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *OutcomeHandler) writeMetricsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionMissing):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPatternNotFound):
		writeError(w, http.StatusNotFound, "pattern not found")
	case errors.Is(err, service.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "concurrent modification; retry")
	case errors.Is(err, domain.ErrInvalidMetricState):
		writeError(w, http.StatusInternalServerError, "metric state invariant violated")
	default:
		writeError(w, http.StatusInternalServerError, "failed to record")
	}
}
