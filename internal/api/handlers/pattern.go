package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/patternops/governor/internal/domain"
	"github.com/patternops/governor/internal/service"
)

type PatternHandler struct {
	patterns  *service.PatternService
	lifecycle *service.LifecycleService
	lineage   *service.LineageService
}

func NewPatternHandler(patterns *service.PatternService, lifecycle *service.LifecycleService, lineage *service.LineageService) *PatternHandler {
	return &PatternHandler{patterns: patterns, lifecycle: lifecycle, lineage: lineage}
}

type registerPatternRequest struct {
	Signature        string                   `json:"signature"`
	DomainID         string                   `json:"domain_id"`
	TaxonomyVersion  string                   `json:"taxonomy_version"`
	DomainCandidates []domain.DomainCandidate `json:"domain_candidates,omitempty"`
	Keywords         []string                 `json:"keywords,omitempty"`
	PatternClass     string                   `json:"pattern_class"`
	Confidence       float64                  `json:"confidence"`
	SessionID        string                   `json:"session_id"`
	ObservedAt       *time.Time               `json:"observed_at,omitempty"`
}

func (h *PatternHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerPatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := service.RegisterInput{
		Signature:        req.Signature,
		DomainID:         req.DomainID,
		TaxonomyVersion:  req.TaxonomyVersion,
		DomainCandidates: req.DomainCandidates,
		Keywords:         req.Keywords,
		PatternClass:     req.PatternClass,
		Confidence:       req.Confidence,
		SessionID:        req.SessionID,
	}
	if req.ObservedAt != nil {
		in.ObservedAt = *req.ObservedAt
	}

	p, err := h.patterns.Register(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSignatureMissing),
			errors.Is(err, service.ErrDomainMissing),
			errors.Is(err, service.ErrSessionMissing),
			errors.Is(err, service.ErrLowConfidence):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrConcurrentModification):
			writeError(w, http.StatusConflict, "a current version already exists for this signature")
		default:
			writeError(w, http.StatusInternalServerError, "failed to register pattern")
		}
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *PatternHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pattern id")
		return
	}

	p, err := h.patterns.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPatternNotFound) {
			writeError(w, http.StatusNotFound, "pattern not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load pattern")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *PatternHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pattern id")
		return
	}

	if err := h.lifecycle.DeletePattern(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrPatternNotFound):
			writeError(w, http.StatusNotFound, "pattern not found")
		case errors.Is(err, service.ErrHasAuditHistory):
			writeError(w, http.StatusConflict, "pattern has audit history; archive it first")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete pattern")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createVersionRequest struct {
	ID               string                   `json:"id,omitempty"`
	Signature        string                   `json:"signature,omitempty"`
	DomainID         string                   `json:"domain_id,omitempty"`
	TaxonomyVersion  string                   `json:"taxonomy_version,omitempty"`
	DomainCandidates []domain.DomainCandidate `json:"domain_candidates,omitempty"`
	Keywords         []string                 `json:"keywords,omitempty"`
	PatternClass     string                   `json:"pattern_class,omitempty"`
	Confidence       float64                  `json:"confidence,omitempty"`
	SourceSessions   []string                 `json:"source_sessions,omitempty"`
}

func (h *PatternHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	oldID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pattern id")
		return
	}

	var req createVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft := service.VersionDraft{
		Signature:        req.Signature,
		DomainID:         req.DomainID,
		TaxonomyVersion:  req.TaxonomyVersion,
		DomainCandidates: req.DomainCandidates,
		Keywords:         req.Keywords,
		PatternClass:     req.PatternClass,
		Confidence:       req.Confidence,
		SourceSessions:   req.SourceSessions,
	}
	if req.ID != "" {
		draftID, err := uuid.Parse(req.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid draft id")
			return
		}
		draft.ID = draftID
	}

	next, err := h.lineage.CreateNewVersion(r.Context(), oldID, draft)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPatternNotFound):
			writeError(w, http.StatusNotFound, "pattern not found")
		case errors.Is(err, service.ErrCycleDetected):
			writeError(w, http.StatusConflict, "version would create a lineage cycle")
		case errors.Is(err, service.ErrAlreadySuperseded):
			writeError(w, http.StatusConflict, "pattern is already superseded")
		case errors.Is(err, service.ErrLowConfidence):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrConcurrentModification):
			writeError(w, http.StatusConflict, "concurrent modification; retry")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create version")
		}
		return
	}

	writeJSON(w, http.StatusCreated, next)
}

func (h *PatternHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pattern id")
		return
	}

	transitions, err := h.lifecycle.Transitions(r.Context(), id, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transitions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transitions": transitions})
}
