package dto

import (
	"time"

	"github.com/eshaffer321/openvera/internal/application/matching"
	"github.com/eshaffer321/openvera/internal/domain/ledger"
	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a healthy response with the current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// DocumentResponse represents a document in API responses.
// Amounts are decimal strings so no precision is lost.
type DocumentResponse struct {
	ID         int64  `json:"id"`
	CompanyID  int64  `json:"company_id"`
	Amount     string `json:"amount,omitempty"`
	Currency   string `json:"currency,omitempty"`
	AmountSEK  string `json:"amount_sek,omitempty"`
	DocDate    string `json:"doc_date,omitempty"`
	PartyID    *int64 `json:"party_id,omitempty"`
	IsArchived bool   `json:"is_archived"`
}

// DocumentListResponse is returned when listing documents.
type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Count     int                `json:"count"`
}

// MatchListResponse is returned when listing ledger entries.
type MatchListResponse struct {
	Matches []*ledger.Match `json:"matches"`
	Count   int             `json:"count"`
}

// CreateMatchResponse is returned after recording a pair.
// Created is false when the pair was already in the ledger.
type CreateMatchResponse struct {
	ID      int64 `json:"id"`
	Created bool  `json:"created"`
}

// RemoveMatchResponse is returned after deleting a pair.
type RemoveMatchResponse struct {
	Removed bool `json:"removed"`
}

// MatchRunResponse is returned by a batch run.
type MatchRunResponse struct {
	RunID      string           `json:"run_id"`
	Status     string           `json:"status"`
	DryRun     bool             `json:"dry_run"`
	Created    int              `json:"created"`
	Duplicates int              `json:"duplicates"`
	CreatedIDs []int64          `json:"created_ids"`
	Report     *matching.Report `json:"report,omitempty"`
}

// NewMatchRunResponse converts a service result.
func NewMatchRunResponse(result *matching.RunResult) MatchRunResponse {
	resp := MatchRunResponse{
		RunID:      result.RunID,
		Status:     result.Status,
		DryRun:     result.DryRun,
		Created:    result.Created,
		Duplicates: result.Duplicates,
		CreatedIDs: result.CreatedIDs,
		Report:     result.Report,
	}
	if resp.CreatedIDs == nil {
		resp.CreatedIDs = []int64{}
	}
	return resp
}

// RunListResponse is returned when listing match runs.
type RunListResponse struct {
	Runs  []*storage.MatchRun `json:"runs"`
	Count int                 `json:"count"`
}

// CompanySummaryResponse reports reconciliation progress for one company.
type CompanySummaryResponse struct {
	Company *storage.Company        `json:"company"`
	Summary *storage.CompanySummary `json:"summary"`
}
