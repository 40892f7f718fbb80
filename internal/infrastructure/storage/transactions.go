package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eshaffer321/openvera/internal/domain/matcher"
)

const transactionColumns = `t.id, a.company_id, t.account_id, t.amount, t.date, t.reference, t.is_internal_transfer, t.accounting_code`

// CreateTransaction inserts a transaction and sets its ID
func (s *Storage) CreateTransaction(ctx context.Context, txn *matcher.Transaction) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (account_id, date, amount, reference, is_internal_transfer, accounting_code)
		VALUES (?, ?, ?, ?, ?, ?)
	`, txn.AccountID, formatDate(txn.Date), txn.Amount, txn.Reference, txn.IsInternalTransfer, nullString(txn.AccountingCode))
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	txn.ID, err = result.LastInsertId()
	return err
}

// ImportTransaction inserts an imported row. Rows whose fingerprint or
// external ID the account already has are skipped and reported as false.
func (s *Storage) ImportTransaction(ctx context.Context, txn *ImportedTransaction) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (account_id, date, amount, balance, reference, external_id, import_fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		txn.AccountID,
		formatDate(txn.Date),
		txn.Amount,
		txn.Balance,
		txn.Reference,
		nullString(txn.ExternalID),
		nullString(txn.Fingerprint),
	)
	if err != nil {
		return false, fmt.Errorf("failed to import transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	txn.ID, err = result.LastInsertId()
	return true, err
}

// HasImportFingerprint reports whether a row was already imported
func (s *Storage) HasImportFingerprint(ctx context.Context, accountID int64, fingerprint string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ? AND import_fingerprint = ?`,
		accountID, fingerprint,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return count > 0, nil
}

// GetTransaction retrieves a transaction by ID
func (s *Storage) GetTransaction(ctx context.Context, id int64) (*matcher.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = ?
	`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return txn, nil
}

// ListTransactions returns every transaction on the company's accounts,
// oldest first. Candidate filtering is left to the caller.
func (s *Storage) ListTransactions(ctx context.Context, companyID int64) ([]*matcher.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.company_id = ?
		ORDER BY t.date, t.id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []*matcher.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row rowScanner) (*matcher.Transaction, error) {
	var txn matcher.Transaction
	var date string
	var code sql.NullString

	err := row.Scan(
		&txn.ID,
		&txn.CompanyID,
		&txn.AccountID,
		&txn.Amount,
		&date,
		&txn.Reference,
		&txn.IsInternalTransfer,
		&code,
	)
	if err != nil {
		return nil, err
	}

	txn.Date, err = parseDate(date)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", txn.ID, err)
	}
	txn.AccountingCode = code.String
	return &txn, nil
}
