package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/patternops/governor/internal/domain"
	"github.com/patternops/governor/internal/service"
)

type KillSwitchHandler struct {
	killSwitch *service.KillSwitchService
}

func NewKillSwitchHandler(ks *service.KillSwitchService) *KillSwitchHandler {
	return &KillSwitchHandler{killSwitch: ks}
}

type appendEventRequest struct {
	EventID      string     `json:"event_id"`
	EventType    string     `json:"event_type"`
	PatternID    *string    `json:"pattern_id,omitempty"`
	PatternClass *string    `json:"pattern_class,omitempty"`
	Reason       string     `json:"reason"`
	Actor        string     `json:"actor"`
	EventAt      *time.Time `json:"event_at,omitempty"`
}

func (h *KillSwitchHandler) Append(w http.ResponseWriter, r *http.Request) {
	var req appendEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event := &domain.DisableEvent{
		EventID:      req.EventID,
		Type:         domain.DisableEventType(req.EventType),
		PatternClass: req.PatternClass,
		Reason:       req.Reason,
		Actor:        req.Actor,
	}
	if req.PatternID != nil {
		id, err := uuid.Parse(*req.PatternID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pattern_id")
			return
		}
		event.PatternID = &id
	}
	if req.EventAt != nil {
		event.EventAt = *req.EventAt
	}

	inserted, err := h.killSwitch.AppendEvent(r.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEventIDMissing),
			errors.Is(err, service.ErrInvalidEventType):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUnknownTarget):
			writeError(w, http.StatusBadRequest, "event must target a pattern id or a pattern class")
		default:
			writeError(w, http.StatusInternalServerError, "failed to append event")
		}
		return
	}

	status := http.StatusCreated
	if !inserted {
		// Re-delivery of a known event id is an ack, not an error.
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{"event_id": event.EventID, "inserted": inserted})
}

func (h *KillSwitchHandler) State(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.killSwitch.Project(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to project kill-switch state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"disabled": snapshot})
}
