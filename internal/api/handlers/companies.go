package handlers

import (
	"net/http"

	"github.com/eshaffer321/openvera/internal/api/dto"
	"github.com/eshaffer321/openvera/internal/domain/matcher"
	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

// CompaniesHandler serves per-company reconciliation views.
type CompaniesHandler struct {
	*Base
}

// NewCompaniesHandler creates a new companies handler.
func NewCompaniesHandler(repo storage.Repository) *CompaniesHandler {
	return &CompaniesHandler{
		Base: NewBase(repo),
	}
}

// Summary handles GET /api/companies/{companyID}/summary
func (h *CompaniesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	company, ok := h.loadCompany(w, r)
	if !ok {
		return
	}

	summary, err := h.repo.GetCompanySummary(r.Context(), company.ID)
	if err != nil {
		h.WriteError(w, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.CompanySummaryResponse{
		Company: company,
		Summary: summary,
	})
}

// Documents handles GET /api/companies/{companyID}/documents
//
// Query parameters:
//   - unmatched_only: only documents without a ledger entry
//   - include_archived: include archived documents
func (h *CompaniesHandler) Documents(w http.ResponseWriter, r *http.Request) {
	company, ok := h.loadCompany(w, r)
	if !ok {
		return
	}

	docs, err := h.repo.ListDocuments(r.Context(), storage.DocumentFilters{
		CompanyID:       company.ID,
		UnmatchedOnly:   ParseBoolParam(r, "unmatched_only", false),
		IncludeArchived: ParseBoolParam(r, "include_archived", false),
	})
	if err != nil {
		h.WriteError(w, dto.InternalError())
		return
	}

	response := dto.DocumentListResponse{
		Documents: make([]dto.DocumentResponse, 0, len(docs)),
		Count:     len(docs),
	}
	for _, doc := range docs {
		response.Documents = append(response.Documents, toDocumentResponse(doc))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// loadCompany resolves the companyID URL parameter, writing the error
// response itself when it cannot
func (h *CompaniesHandler) loadCompany(w http.ResponseWriter, r *http.Request) (*storage.Company, bool) {
	id, err := ParseIDParam(r, "companyID")
	if err != nil {
		h.WriteError(w, dto.BadRequestError(err.Error()))
		return nil, false
	}

	company, err := h.repo.GetCompany(r.Context(), id)
	if err != nil {
		h.WriteError(w, dto.InternalError())
		return nil, false
	}
	if company == nil {
		h.WriteError(w, dto.NotFoundError("company"))
		return nil, false
	}
	return company, true
}

// toDocumentResponse converts a domain document to an API response.
func toDocumentResponse(doc *matcher.Document) dto.DocumentResponse {
	resp := dto.DocumentResponse{
		ID:         doc.ID,
		CompanyID:  doc.CompanyID,
		Currency:   doc.Currency,
		PartyID:    doc.PartyID,
		IsArchived: doc.IsArchived,
	}
	if doc.Amount.Valid {
		resp.Amount = doc.Amount.Decimal.StringFixed(2)
	}
	if doc.AmountSEK.Valid {
		resp.AmountSEK = doc.AmountSEK.Decimal.StringFixed(2)
	}
	if doc.DocDate != nil {
		resp.DocDate = doc.DocDate.Format("2006-01-02")
	}
	return resp
}
