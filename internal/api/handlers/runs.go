package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/openvera/internal/api/dto"
	"github.com/eshaffer321/openvera/internal/application/matching"
	"github.com/eshaffer321/openvera/internal/domain/ledger"
	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

// RunsHandler starts batch match runs and reports on past ones.
type RunsHandler struct {
	*Base
	service *matching.Service
}

// NewRunsHandler creates a new runs handler.
// If service is nil, Start responds 503.
func NewRunsHandler(repo storage.Repository, service *matching.Service) *RunsHandler {
	return &RunsHandler{
		Base:    NewBase(repo),
		service: service,
	}
}

// Start handles POST /api/companies/{companyID}/match - runs matching
// synchronously and returns the report.
func (h *RunsHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		h.WriteError(w, dto.UnavailableError("matching is not available"))
		return
	}

	companyID, err := ParseIDParam(r, "companyID")
	if err != nil {
		h.WriteError(w, dto.BadRequestError(err.Error()))
		return
	}

	var req dto.MatchRunRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.WriteError(w, dto.BadRequestError(err.Error()))
		return
	}

	company, err := h.repo.GetCompany(r.Context(), companyID)
	if err != nil {
		h.WriteError(w, dto.InternalError())
		return
	}
	if company == nil {
		h.WriteError(w, dto.NotFoundError("company"))
		return
	}

	result, err := h.service.Run(r.Context(), matching.RunRequest{
		CompanyID:       companyID,
		AcceptThreshold: req.AcceptThreshold,
		DryRun:          req.DryRun,
		Rematch:         req.Rematch,
		MatchType:       ledger.MatchType(req.MatchType),
		MatchedBy:       ledger.MatchedBy(req.MatchedBy),
	})
	if err != nil {
		if errors.Is(err, matching.ErrInvalidThreshold) ||
			errors.Is(err, ledger.ErrInvalidMatchType) ||
			errors.Is(err, ledger.ErrInvalidMatchedBy) {
			h.WriteError(w, dto.ValidationError(err.Error()))
			return
		}
		h.WriteError(w, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewMatchRunResponse(result))
}

// List handles GET /api/runs - returns recent match runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	params := dto.DefaultRunListParams()
	params.Limit = ParseIntParam(r, "limit", params.Limit)
	companyID, err := ParseInt64Param(r, "company_id")
	if err != nil {
		h.WriteError(w, dto.BadRequestError(err.Error()))
		return
	}
	params.CompanyID = companyID

	runs, err := h.repo.ListMatchRuns(r.Context(), params.CompanyID, params.Limit)
	if err != nil {
		h.WriteError(w, dto.InternalError())
		return
	}
	if runs == nil {
		runs = []*storage.MatchRun{}
	}

	h.WriteJSON(w, http.StatusOK, dto.RunListResponse{
		Runs:  runs,
		Count: len(runs),
	})
}

// Get handles GET /api/runs/{id} - returns a single match run by ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetMatchRun(r.Context(), id)
	if err != nil {
		h.WriteError(w, dto.InternalError())
		return
	}

	if run == nil {
		h.WriteError(w, dto.NotFoundError("match run"))
		return
	}

	h.WriteJSON(w, http.StatusOK, run)
}
