// Package ledger defines the persisted document-transaction pairs.
package ledger

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidMatchType = errors.New("invalid match type")
	ErrInvalidMatchedBy = errors.New("invalid matched_by")
)

// MatchType records how a pair came to be
type MatchType string

const (
	MatchTypeAuto      MatchType = "auto"
	MatchTypeSuggested MatchType = "suggested"
	MatchTypeApproved  MatchType = "approved"
)

// Valid reports whether t is a known match type
func (t MatchType) Valid() bool {
	switch t {
	case MatchTypeAuto, MatchTypeSuggested, MatchTypeApproved:
		return true
	}
	return false
}

// ParseMatchType converts s to a MatchType
func ParseMatchType(s string) (MatchType, error) {
	t := MatchType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMatchType, s)
	}
	return t, nil
}

// MatchedBy records who created a pair
type MatchedBy string

const (
	MatchedByAgent  MatchedBy = "agent"
	MatchedByUser   MatchedBy = "user"
	MatchedBySystem MatchedBy = "system"
)

// Valid reports whether m is a known creator
func (m MatchedBy) Valid() bool {
	switch m {
	case MatchedByAgent, MatchedByUser, MatchedBySystem:
		return true
	}
	return false
}

// ParseMatchedBy converts s to a MatchedBy
func ParseMatchedBy(s string) (MatchedBy, error) {
	m := MatchedBy(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMatchedBy, s)
	}
	return m, nil
}

// Match is a persisted link between a document and the transaction that paid it
type Match struct {
	ID            int64     `json:"id"`
	DocumentID    int64     `json:"document_id"`
	TransactionID int64     `json:"transaction_id"`
	Confidence    *int      `json:"confidence,omitempty"`
	MatchType     MatchType `json:"match_type"`
	MatchedBy     MatchedBy `json:"matched_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewMatch is a request to record a pair
type NewMatch struct {
	DocumentID    int64
	TransactionID int64
	Confidence    *int
	MatchType     MatchType
	MatchedBy     MatchedBy
}

// Validate checks the request before it reaches the store
func (m NewMatch) Validate() error {
	if m.DocumentID <= 0 || m.TransactionID <= 0 {
		return fmt.Errorf("document_id and transaction_id are required")
	}
	if m.Confidence != nil && (*m.Confidence < 0 || *m.Confidence > 100) {
		return fmt.Errorf("confidence %d out of range 0-100", *m.Confidence)
	}
	if !m.MatchType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMatchType, m.MatchType)
	}
	if !m.MatchedBy.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMatchedBy, m.MatchedBy)
	}
	return nil
}
