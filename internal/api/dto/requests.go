package dto

// MatchRunRequest is the body of POST /api/companies/{companyID}/match.
// Every field is optional.
type MatchRunRequest struct {
	AcceptThreshold *int   `json:"accept_threshold,omitempty"`
	DryRun          bool   `json:"dry_run"`
	Rematch         bool   `json:"rematch"`
	MatchType       string `json:"match_type,omitempty"`
	MatchedBy       string `json:"matched_by,omitempty"`
}

// CreateMatchRequest is the body of POST /api/matches
type CreateMatchRequest struct {
	DocumentID    int64  `json:"document_id"`
	TransactionID int64  `json:"transaction_id"`
	Confidence    *int   `json:"confidence,omitempty"`
	MatchType     string `json:"match_type,omitempty"` // Default: approved
	MatchedBy     string `json:"matched_by,omitempty"` // Default: user
}

// RunListParams represents query parameters for listing match runs.
type RunListParams struct {
	CompanyID int64 `json:"company_id"`
	Limit     int   `json:"limit"`
}

// DefaultRunListParams returns default values for run list params.
func DefaultRunListParams() RunListParams {
	return RunListParams{
		Limit: 20,
	}
}
