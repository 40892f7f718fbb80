package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateCompany inserts a company and sets its ID
func (s *Storage) CreateCompany(ctx context.Context, company *Company) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (slug, name, org_number) VALUES (?, ?, ?)`,
		company.Slug, company.Name, nullString(company.OrgNumber),
	)
	if err != nil {
		return fmt.Errorf("failed to create company %q: %w", company.Slug, err)
	}
	company.ID, err = result.LastInsertId()
	return err
}

// GetCompany retrieves a company by ID
func (s *Storage) GetCompany(ctx context.Context, id int64) (*Company, error) {
	var c Company
	var orgNumber sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, slug, name, org_number FROM companies WHERE id = ?`, id,
	).Scan(&c.ID, &c.Slug, &c.Name, &orgNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company %d: %w", id, err)
	}
	c.OrgNumber = orgNumber.String
	return &c, nil
}

// CreateAccount inserts a bank account and sets its ID
func (s *Storage) CreateAccount(ctx context.Context, account *Account) error {
	if account.Currency == "" {
		account.Currency = "SEK"
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (company_id, name, account_number, currency) VALUES (?, ?, ?, ?)`,
		account.CompanyID, account.Name, nullString(account.AccountNumber), account.Currency,
	)
	if err != nil {
		return fmt.Errorf("failed to create account %q: %w", account.Name, err)
	}
	account.ID, err = result.LastInsertId()
	return err
}

// GetAccount retrieves an account by ID
func (s *Storage) GetAccount(ctx context.Context, id int64) (*Account, error) {
	return s.getAccount(ctx, `WHERE id = ?`, id)
}

// FindAccountByNumber looks an account up by its bank account number
func (s *Storage) FindAccountByNumber(ctx context.Context, number string) (*Account, error) {
	return s.getAccount(ctx, `WHERE account_number = ?`, number)
}

func (s *Storage) getAccount(ctx context.Context, where string, arg any) (*Account, error) {
	var a Account
	var number sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, company_id, name, account_number, currency FROM accounts `+where, arg,
	).Scan(&a.ID, &a.CompanyID, &a.Name, &number, &a.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	a.AccountNumber = number.String
	return &a, nil
}

// GetCompanySummary returns reconciliation counts for a company.
// Archived documents and non-candidate transactions are left out.
func (s *Storage) GetCompanySummary(ctx context.Context, companyID int64) (*CompanySummary, error) {
	summary := &CompanySummary{CompanyID: companyID}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN EXISTS (SELECT 1 FROM matches m WHERE m.document_id = d.id) THEN 1 ELSE 0 END), 0)
		FROM documents d
		WHERE d.company_id = ? AND d.is_archived = 0
	`, companyID).Scan(&summary.TotalDocuments, &summary.MatchedDocuments)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN EXISTS (SELECT 1 FROM matches m WHERE m.transaction_id = t.id) THEN 1 ELSE 0 END), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.company_id = ? AND t.amount < 0 AND t.is_internal_transfer = 0
	`, companyID).Scan(&summary.CandidateTransactions, &summary.MatchedTransactions)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	summary.UnmatchedDocuments = summary.TotalDocuments - summary.MatchedDocuments
	if summary.TotalDocuments > 0 {
		summary.MatchRate = float64(summary.MatchedDocuments) / float64(summary.TotalDocuments)
	}
	return summary, nil
}
