package storage

import (
	"context"
	"time"

	"github.com/eshaffer321/openvera/internal/domain/ledger"
	"github.com/eshaffer321/openvera/internal/domain/matcher"
)

// Repository defines the complete storage interface.
// Getters return (nil, nil) when the row does not exist.
type Repository interface {
	CompanyRepository
	DocumentRepository
	TransactionRepository
	PartyRepository
	MatchLedger
	MatchRunRepository
	Ping(ctx context.Context) error
	Close() error
}

// CompanyRepository handles companies and their bank accounts
type CompanyRepository interface {
	// CreateCompany inserts a company and sets its ID
	CreateCompany(ctx context.Context, company *Company) error

	// GetCompany retrieves a company by ID
	GetCompany(ctx context.Context, id int64) (*Company, error)

	// CreateAccount inserts a bank account and sets its ID
	CreateAccount(ctx context.Context, account *Account) error

	// GetAccount retrieves an account by ID
	GetAccount(ctx context.Context, id int64) (*Account, error)

	// FindAccountByNumber looks an account up by its bank account number
	FindAccountByNumber(ctx context.Context, number string) (*Account, error)

	// GetCompanySummary returns reconciliation counts for a company
	GetCompanySummary(ctx context.Context, companyID int64) (*CompanySummary, error)
}

// DocumentRepository handles invoices and receipts
type DocumentRepository interface {
	// CreateDocument inserts a document and sets its ID
	CreateDocument(ctx context.Context, doc *matcher.Document) error

	// GetDocument retrieves a document by ID
	GetDocument(ctx context.Context, id int64) (*matcher.Document, error)

	// ListDocuments returns a company's documents matching the filters
	ListDocuments(ctx context.Context, filters DocumentFilters) ([]*matcher.Document, error)

	// MarkMatchAttempted stamps documents that went through scoring
	MarkMatchAttempted(ctx context.Context, documentIDs []int64, at time.Time) error
}

// DocumentFilters defines filters for listing documents
type DocumentFilters struct {
	CompanyID       int64 // Required
	UnmatchedOnly   bool  // Only documents with no ledger entry
	IncludeArchived bool  // Archived documents are hidden by default
}

// TransactionRepository handles bank transactions
type TransactionRepository interface {
	// CreateTransaction inserts a transaction and sets its ID
	CreateTransaction(ctx context.Context, txn *matcher.Transaction) error

	// ImportTransaction inserts an imported row unless its fingerprint or
	// external ID is already known for the account. Returns false for duplicates.
	ImportTransaction(ctx context.Context, txn *ImportedTransaction) (bool, error)

	// HasImportFingerprint reports whether a row was already imported
	HasImportFingerprint(ctx context.Context, accountID int64, fingerprint string) (bool, error)

	// GetTransaction retrieves a transaction by ID
	GetTransaction(ctx context.Context, id int64) (*matcher.Transaction, error)

	// ListTransactions returns every transaction on the company's accounts
	ListTransactions(ctx context.Context, companyID int64) ([]*matcher.Transaction, error)
}

// PartyRepository handles counterparties
type PartyRepository interface {
	// CreateParty inserts a party and sets its ID
	CreateParty(ctx context.Context, party *matcher.Party) error

	// GetParty retrieves a party by ID
	GetParty(ctx context.Context, id int64) (*matcher.Party, error)
}

// MatchLedger is the authoritative record of document-transaction pairs.
// A pair exists at most once.
type MatchLedger interface {
	// CreateMatch records a pair. When the pair already exists nothing is
	// written and the existing ID is returned with created set to false.
	CreateMatch(ctx context.Context, m ledger.NewMatch) (id int64, created bool, err error)

	// RemoveMatch deletes a pair. Returns false when there was nothing to delete.
	RemoveMatch(ctx context.Context, documentID, transactionID int64) (bool, error)

	// MatchExists reports whether the pair is recorded
	MatchExists(ctx context.Context, documentID, transactionID int64) (bool, error)

	// ListMatchesForTransaction returns all pairs involving a transaction
	ListMatchesForTransaction(ctx context.Context, transactionID int64) ([]*ledger.Match, error)

	// ListMatchesForDocument returns all pairs involving a document
	ListMatchesForDocument(ctx context.Context, documentID int64) ([]*ledger.Match, error)

	// ListMatchesForCompany returns all pairs whose document belongs to the company
	ListMatchesForCompany(ctx context.Context, companyID int64) ([]*ledger.Match, error)
}

// MatchRunRepository handles batch run tracking
type MatchRunRepository interface {
	// StartMatchRun records the start of a run
	StartMatchRun(ctx context.Context, run *MatchRun) error

	// CompleteMatchRun stores the run's counts and final status
	CompleteMatchRun(ctx context.Context, run *MatchRun) error

	// GetMatchRun retrieves a run by ID
	GetMatchRun(ctx context.Context, id string) (*MatchRun, error)

	// ListMatchRuns returns recent runs, newest first. companyID 0 means all.
	ListMatchRuns(ctx context.Context, companyID int64, limit int) ([]*MatchRun, error)
}
