package matcher

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the bookkeeping currency. Documents in any other currency
// are compared through their converted AmountSEK.
const BaseCurrency = "SEK"

// Document is an invoice or receipt waiting to be reconciled
type Document struct {
	ID         int64
	CompanyID  int64
	Amount     decimal.NullDecimal // Signed, in the document's own currency
	Currency   string              // Empty means BaseCurrency
	AmountSEK  decimal.NullDecimal // Converted amount, required for foreign currencies
	DocDate    *time.Time
	PartyID    *int64
	IsArchived bool
}

// IsBaseCurrency reports whether the document amount is already in BaseCurrency
func (d *Document) IsBaseCurrency() bool {
	currency := strings.TrimSpace(d.Currency)
	return currency == "" || strings.EqualFold(currency, BaseCurrency)
}

// Transaction is a bank transaction. Expenses carry a negative amount.
type Transaction struct {
	ID                 int64
	CompanyID          int64
	AccountID          int64
	Amount             decimal.Decimal
	Date               time.Time
	Reference          string
	IsInternalTransfer bool
	AccountingCode     string
}

// IsCandidate reports whether the transaction can pay a document
func (t *Transaction) IsCandidate() bool {
	return t.Amount.IsNegative() && !t.IsInternalTransfer
}

// Party is a counterparty (vendor or customer) with reference patterns
type Party struct {
	ID          int64
	Name        string
	Patterns    []string
	DefaultCode string // Accounting code copied to matched transactions
}

// MatchesReference reports whether any pattern occurs in the reference,
// ignoring case
func (p *Party) MatchesReference(reference string) bool {
	if reference == "" {
		return false
	}
	ref := strings.ToLower(reference)
	for _, pattern := range p.Patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if strings.Contains(ref, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// SkipReason explains why a document never reached scoring
type SkipReason string

const (
	SkipMissingAmount   SkipReason = "missing_amount"
	SkipMissingDate     SkipReason = "missing_date"
	SkipMissingFXAmount SkipReason = "missing_fx_amount"
	SkipArchived        SkipReason = "archived"
)

// ScoreResult describes how well a document and transaction fit together
type ScoreResult struct {
	Confidence     int             // Final score, 0-100
	BaseConfidence int             // Tier score before modifiers
	DateDiffDays   int             // Transaction date minus document date
	AmountMatched  bool            // Amounts equal within rounding
	AmountDiff     decimal.Decimal // Absolute difference in BaseCurrency
	PartyMatched   bool
	AmountCount    int // Candidates sharing the document's amount
}
