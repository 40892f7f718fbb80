package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eshaffer321/openvera/internal/domain/ledger"
)

// CreateMatch records a document-transaction pair. The existence check,
// insert and accounting-code propagation run in one transaction under the
// writer lock, so concurrent creates of the same pair yield one row.
func (s *Storage) CreateMatch(ctx context.Context, m ledger.NewMatch) (int64, bool, error) {
	if err := m.Validate(); err != nil {
		return 0, false, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM matches WHERE document_id = ? AND transaction_id = ?`,
		m.DocumentID, m.TransactionID,
	).Scan(&existingID)
	if err == nil {
		return existingID, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to check existing match: %w", err)
	}

	var confidence sql.NullInt64
	if m.Confidence != nil {
		confidence = sql.NullInt64{Int64: int64(*m.Confidence), Valid: true}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO matches (document_id, transaction_id, confidence, match_type, matched_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.DocumentID, m.TransactionID, confidence, string(m.MatchType), string(m.MatchedBy), time.Now().UTC())
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert match: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, false, err
	}

	// Copy the party's default accounting code to an uncoded transaction
	_, err = tx.ExecContext(ctx, `
		UPDATE transactions
		SET accounting_code = (
			SELECT p.default_code FROM documents d
			JOIN parties p ON p.id = d.party_id
			WHERE d.id = ?
		)
		WHERE id = ?
		  AND (accounting_code IS NULL OR accounting_code = '')
		  AND EXISTS (
			SELECT 1 FROM documents d
			JOIN parties p ON p.id = d.party_id
			WHERE d.id = ? AND p.default_code IS NOT NULL AND p.default_code != ''
		  )
	`, m.DocumentID, m.TransactionID, m.DocumentID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to propagate accounting code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit match: %w", err)
	}
	return id, true, nil
}

// RemoveMatch deletes a pair. Returns false when there was nothing to delete.
func (s *Storage) RemoveMatch(ctx context.Context, documentID, transactionID int64) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM matches WHERE document_id = ? AND transaction_id = ?`,
		documentID, transactionID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove match: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MatchExists reports whether the pair is recorded
func (s *Storage) MatchExists(ctx context.Context, documentID, transactionID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE document_id = ? AND transaction_id = ?`,
		documentID, transactionID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check match: %w", err)
	}
	return count > 0, nil
}

// ListMatchesForTransaction returns all pairs involving a transaction
func (s *Storage) ListMatchesForTransaction(ctx context.Context, transactionID int64) ([]*ledger.Match, error) {
	return s.listMatches(ctx, `WHERE m.transaction_id = ?`, transactionID)
}

// ListMatchesForDocument returns all pairs involving a document
func (s *Storage) ListMatchesForDocument(ctx context.Context, documentID int64) ([]*ledger.Match, error) {
	return s.listMatches(ctx, `WHERE m.document_id = ?`, documentID)
}

// ListMatchesForCompany returns all pairs whose document belongs to the company
func (s *Storage) ListMatchesForCompany(ctx context.Context, companyID int64) ([]*ledger.Match, error) {
	return s.listMatches(ctx, `JOIN documents d ON d.id = m.document_id WHERE d.company_id = ?`, companyID)
}

func (s *Storage) listMatches(ctx context.Context, clause string, arg any) ([]*ledger.Match, error) {
	query := `
		SELECT m.id, m.document_id, m.transaction_id, m.confidence, m.match_type, m.matched_by, m.created_at
		FROM matches m ` + clause + `
		ORDER BY m.id`

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]*ledger.Match, 0)
	for rows.Next() {
		var m ledger.Match
		var confidence sql.NullInt64
		var matchType, matchedBy string

		err := rows.Scan(&m.ID, &m.DocumentID, &m.TransactionID, &confidence, &matchType, &matchedBy, &m.CreatedAt)
		if err != nil {
			return nil, err
		}
		if confidence.Valid {
			c := int(confidence.Int64)
			m.Confidence = &c
		}
		m.MatchType = ledger.MatchType(matchType)
		m.MatchedBy = ledger.MatchedBy(matchedBy)
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}
