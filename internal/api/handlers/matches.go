package handlers

import (
	"net/http"

	"github.com/eshaffer321/openvera/internal/api/dto"
	"github.com/eshaffer321/openvera/internal/domain/ledger"
	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

// MatchesHandler exposes the match ledger.
type MatchesHandler struct {
	*Base
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(repo storage.Repository) *MatchesHandler {
	return &MatchesHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/matches. Exactly one of transaction_id, document_id
// or company_id selects the entries.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	txnID, err := ParseInt64Param(r, "transaction_id")
	if err != nil {
		h.WriteError(w, dto.BadRequestError(err.Error()))
		return
	}
	docID, err := ParseInt64Param(r, "document_id")
	if err != nil {
		h.WriteError(w, dto.BadRequestError(err.Error()))
		return
	}
	companyID, err := ParseInt64Param(r, "company_id")
	if err != nil {
		h.WriteError(w, dto.BadRequestError(err.Error()))
		return
	}

	var matches []*ledger.Match
	switch {
	case txnID > 0:
		matches, err = h.repo.ListMatchesForTransaction(r.Context(), txnID)
	case docID > 0:
		matches, err = h.repo.ListMatchesForDocument(r.Context(), docID)
	case companyID > 0:
		matches, err = h.repo.ListMatchesForCompany(r.Context(), companyID)
	default:
		h.WriteError(w, dto.BadRequestError("one of transaction_id, document_id or company_id is required"))
		return
	}
	if err != nil {
		h.WriteError(w, dto.InternalError())
		return
	}

	if matches == nil {
		matches = []*ledger.Match{}
	}
	h.WriteJSON(w, http.StatusOK, dto.MatchListResponse{
		Matches: matches,
		Count:   len(matches),
	})
}

// Create handles POST /api/matches. Manual pairs default to approved by user.
// Recording an existing pair returns it with 200 instead of 201.
func (h *MatchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.WriteError(w, dto.BadRequestError(err.Error()))
		return
	}

	nm := ledger.NewMatch{
		DocumentID:    req.DocumentID,
		TransactionID: req.TransactionID,
		Confidence:    req.Confidence,
		MatchType:     ledger.MatchTypeApproved,
		MatchedBy:     ledger.MatchedByUser,
	}
	if req.MatchType != "" {
		nm.MatchType = ledger.MatchType(req.MatchType)
	}
	if req.MatchedBy != "" {
		nm.MatchedBy = ledger.MatchedBy(req.MatchedBy)
	}
	if err := nm.Validate(); err != nil {
		h.WriteError(w, dto.ValidationError(err.Error()))
		return
	}

	ctx := r.Context()
	doc, err := h.repo.GetDocument(ctx, nm.DocumentID)
	if err != nil {
		h.WriteError(w, dto.InternalError())
		return
	}
	if doc == nil {
		h.WriteError(w, dto.NotFoundError("document"))
		return
	}
	txn, err := h.repo.GetTransaction(ctx, nm.TransactionID)
	if err != nil {
		h.WriteError(w, dto.InternalError())
		return
	}
	if txn == nil {
		h.WriteError(w, dto.NotFoundError("transaction"))
		return
	}
	if doc.CompanyID != txn.CompanyID {
		h.WriteError(w, dto.ValidationError("document and transaction belong to different companies"))
		return
	}

	id, created, err := h.repo.CreateMatch(ctx, nm)
	if err != nil {
		h.WriteError(w, dto.InternalError())
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.WriteJSON(w, status, dto.CreateMatchResponse{ID: id, Created: created})
}

// Remove handles DELETE /api/matches?document_id=&transaction_id=
func (h *MatchesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	docID, err := parsePositiveID("document_id", r.URL.Query().Get("document_id"))
	if err != nil {
		h.WriteError(w, dto.BadRequestError(err.Error()))
		return
	}
	txnID, err := parsePositiveID("transaction_id", r.URL.Query().Get("transaction_id"))
	if err != nil {
		h.WriteError(w, dto.BadRequestError(err.Error()))
		return
	}

	removed, err := h.repo.RemoveMatch(r.Context(), docID, txnID)
	if err != nil {
		h.WriteError(w, dto.InternalError())
		return
	}
	if !removed {
		h.WriteError(w, dto.NotFoundError("match"))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.RemoveMatchResponse{Removed: true})
}
