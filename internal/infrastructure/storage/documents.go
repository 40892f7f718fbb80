package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/openvera/internal/domain/matcher"
)

const documentColumns = `d.id, d.company_id, d.amount, d.currency, d.amount_sek, d.doc_date, d.party_id, d.is_archived`

// CreateDocument inserts a document and sets its ID
func (s *Storage) CreateDocument(ctx context.Context, doc *matcher.Document) error {
	var docDate sql.NullString
	if doc.DocDate != nil {
		docDate = sql.NullString{String: formatDate(*doc.DocDate), Valid: true}
	}
	currency := doc.Currency
	if currency == "" {
		currency = matcher.BaseCurrency
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (company_id, amount, currency, amount_sek, doc_date, party_id, is_archived)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.CompanyID, doc.Amount, currency, doc.AmountSEK, docDate, nullInt64(doc.PartyID), doc.IsArchived)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	doc.ID, err = result.LastInsertId()
	return err
}

// GetDocument retrieves a document by ID
func (s *Storage) GetDocument(ctx context.Context, id int64) (*matcher.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents d WHERE d.id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %d: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns a company's documents ordered by date then ID.
// "Unmatched" is derived from the ledger, there is no stored flag.
func (s *Storage) ListDocuments(ctx context.Context, filters DocumentFilters) ([]*matcher.Document, error) {
	conditions := []string{"d.company_id = ?"}
	args := []any{filters.CompanyID}

	if !filters.IncludeArchived {
		conditions = append(conditions, "d.is_archived = 0")
	}
	if filters.UnmatchedOnly {
		conditions = append(conditions, "NOT EXISTS (SELECT 1 FROM matches m WHERE m.document_id = d.id)")
	}

	query := `SELECT ` + documentColumns + ` FROM documents d WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY d.doc_date IS NULL, d.doc_date, d.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*matcher.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// MarkMatchAttempted stamps documents that went through scoring
func (s *Storage) MarkMatchAttempted(ctx context.Context, documentIDs []int64, at time.Time) error {
	if len(documentIDs) == 0 {
		return nil
	}

	args := make([]any, 0, len(documentIDs)+1)
	args = append(args, at.UTC())
	for _, id := range documentIDs {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET match_attempted_at = ? WHERE id IN (`+placeholders(len(documentIDs))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to mark documents attempted: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*matcher.Document, error) {
	var doc matcher.Document
	var docDate sql.NullString
	var partyID sql.NullInt64

	err := row.Scan(
		&doc.ID,
		&doc.CompanyID,
		&doc.Amount,
		&doc.Currency,
		&doc.AmountSEK,
		&docDate,
		&partyID,
		&doc.IsArchived,
	)
	if err != nil {
		return nil, err
	}

	if docDate.Valid && docDate.String != "" {
		d, err := parseDate(docDate.String)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", doc.ID, err)
		}
		doc.DocDate = &d
	}
	if partyID.Valid {
		id := partyID.Int64
		doc.PartyID = &id
	}
	return &doc, nil
}
