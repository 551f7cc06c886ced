package handlers

import (
	"errors"
	"net/http"

	"github.com/patternops/governor/internal/domain"
	"github.com/patternops/governor/internal/service"
)

type EligibilityHandler struct {
	eligibility *service.EligibilityService
}

func NewEligibilityHandler(e *service.EligibilityService) *EligibilityHandler {
	return &EligibilityHandler{eligibility: e}
}

// List is the injection-time read path: validated, current, tier-qualified,
// not kill-switched.
func (h *EligibilityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	domainID := q.Get("domain")
	class := q.Get("class")
	minTier := domain.EvidenceTier(q.Get("min_tier"))

	patterns, err := h.eligibility.ListEligible(r.Context(), domainID, class, minTier)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDomainMissing), errors.Is(err, service.ErrInvalidTier):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to list eligible patterns")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"patterns": patterns})
}
