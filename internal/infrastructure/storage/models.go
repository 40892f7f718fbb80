package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company is a bookkeeping entity owning accounts and documents
type Company struct {
	ID        int64  `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	OrgNumber string `json:"org_number,omitempty"`
}

// Account is a bank account belonging to a company
type Account struct {
	ID            int64  `json:"id"`
	CompanyID     int64  `json:"company_id"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number,omitempty"`
	Currency      string `json:"currency"`
}

// ImportedTransaction is a bank statement row on its way into the store
type ImportedTransaction struct {
	ID          int64
	AccountID   int64
	Date        time.Time
	Amount      decimal.Decimal
	Balance     decimal.NullDecimal
	Reference   string
	ExternalID  string // Bank-assigned ID, e.g. an OFX FITID
	Fingerprint string
}

// Match run statuses
const (
	RunStatusRunning             = "running"
	RunStatusCompleted           = "completed"
	RunStatusCompletedWithErrors = "completed_with_errors"
	RunStatusFailed              = "failed"
)

// MatchRun represents one batch matching invocation
type MatchRun struct {
	ID              string     `json:"id"`
	CompanyID       int64      `json:"company_id"`
	AcceptThreshold int        `json:"accept_threshold"`
	DryRun          bool       `json:"dry_run"`
	Rematch         bool       `json:"rematch"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DocumentsFound  int        `json:"documents_found"`
	Skipped         int        `json:"documents_skipped"`
	Proposed        int        `json:"proposed"`
	Created         int        `json:"created"`
	Duplicates      int        `json:"duplicates"`
	NearMisses      int        `json:"near_misses"`
	Unmatched       int        `json:"unmatched"`
	Errors          int        `json:"errors"`
	Status          string     `json:"status"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

// Finish stamps completion and derives the final status. A non-empty
// ErrorMessage means the run aborted.
func (r *MatchRun) Finish(at time.Time) {
	r.CompletedAt = &at
	switch {
	case r.ErrorMessage != "":
		r.Status = RunStatusFailed
	case r.Errors > 0:
		r.Status = RunStatusCompletedWithErrors
	default:
		r.Status = RunStatusCompleted
	}
}

// CompanySummary contains reconciliation progress for a company
type CompanySummary struct {
	CompanyID             int64   `json:"company_id"`
	TotalDocuments        int     `json:"total_documents"`
	MatchedDocuments      int     `json:"matched_documents"`
	UnmatchedDocuments    int     `json:"unmatched_documents"`
	CandidateTransactions int     `json:"candidate_transactions"`
	MatchedTransactions   int     `json:"matched_transactions"`
	MatchRate             float64 `json:"match_rate"` // Matched share of documents, 0-1
}
