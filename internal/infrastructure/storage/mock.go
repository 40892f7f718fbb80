package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eshaffer321/openvera/internal/domain/ledger"
	"github.com/eshaffer321/openvera/internal/domain/matcher"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps, making tests fast and isolated.
type MockRepository struct {
	mu sync.Mutex

	companies    map[int64]*Company
	accounts     map[int64]*Account
	documents    map[int64]*matcher.Document
	transactions map[int64]*matcher.Transaction
	parties      map[int64]*matcher.Party
	matches      map[int64]*ledger.Match
	runs         map[string]*MatchRun
	fingerprints map[int64]map[string]bool // Keyed by account ID
	attempted    map[int64]time.Time
	nextID       int64

	// Hooks for test assertions
	CreateMatchCalls int
	LastNewMatch     *ledger.NewMatch
	StartRunCalled   bool
	CompletedRuns    []*MatchRun

	// Error injection for testing error paths
	CreateMatchErr       error
	CreateMatchFailAfter int // Fail once this many creates succeeded (0 = never)
	ListDocumentsErr     error
	ListTransactionsErr  error
	MatchExistsErr       error
	StartMatchRunErr     error
	MarkAttemptedErr     error
	PingErr              error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		companies:    make(map[int64]*Company),
		accounts:     make(map[int64]*Account),
		documents:    make(map[int64]*matcher.Document),
		transactions: make(map[int64]*matcher.Transaction),
		parties:      make(map[int64]*matcher.Party),
		matches:      make(map[int64]*ledger.Match),
		runs:         make(map[string]*MatchRun),
		fingerprints: make(map[int64]map[string]bool),
		attempted:    make(map[int64]time.Time),
		nextID:       1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

func (m *MockRepository) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *MockRepository) Ping(ctx context.Context) error { return m.PingErr }
func (m *MockRepository) Close() error                   { return nil }

// CompanyRepository

func (m *MockRepository) CreateCompany(ctx context.Context, company *Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	company.ID = m.id()
	c := *company
	m.companies[c.ID] = &c
	return nil
}

func (m *MockRepository) GetCompany(ctx context.Context, id int64) (*Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (m *MockRepository) CreateAccount(ctx context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account.ID = m.id()
	a := *account
	m.accounts[a.ID] = &a
	return nil
}

func (m *MockRepository) GetAccount(ctx context.Context, id int64) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (m *MockRepository) FindAccountByNumber(ctx context.Context, number string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.AccountNumber == number {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) GetCompanySummary(ctx context.Context, companyID int64) (*CompanySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matchedDocs := make(map[int64]bool)
	matchedTxns := make(map[int64]bool)
	for _, match := range m.matches {
		matchedDocs[match.DocumentID] = true
		matchedTxns[match.TransactionID] = true
	}

	summary := &CompanySummary{CompanyID: companyID}
	for _, d := range m.documents {
		if d.CompanyID != companyID || d.IsArchived {
			continue
		}
		summary.TotalDocuments++
		if matchedDocs[d.ID] {
			summary.MatchedDocuments++
		}
	}
	for _, t := range m.transactions {
		if t.CompanyID != companyID || !t.IsCandidate() {
			continue
		}
		summary.CandidateTransactions++
		if matchedTxns[t.ID] {
			summary.MatchedTransactions++
		}
	}
	summary.UnmatchedDocuments = summary.TotalDocuments - summary.MatchedDocuments
	if summary.TotalDocuments > 0 {
		summary.MatchRate = float64(summary.MatchedDocuments) / float64(summary.TotalDocuments)
	}
	return summary, nil
}

// DocumentRepository

func (m *MockRepository) CreateDocument(ctx context.Context, doc *matcher.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.ID = m.id()
	d := *doc
	m.documents[d.ID] = &d
	return nil
}

func (m *MockRepository) GetDocument(ctx context.Context, id int64) (*matcher.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

func (m *MockRepository) ListDocuments(ctx context.Context, filters DocumentFilters) ([]*matcher.Document, error) {
	if m.ListDocumentsErr != nil {
		return nil, m.ListDocumentsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make(map[int64]bool)
	for _, match := range m.matches {
		matched[match.DocumentID] = true
	}

	var docs []*matcher.Document
	for _, d := range m.documents {
		if d.CompanyID != filters.CompanyID {
			continue
		}
		if d.IsArchived && !filters.IncludeArchived {
			continue
		}
		if filters.UnmatchedOnly && matched[d.ID] {
			continue
		}
		copied := *d
		docs = append(docs, &copied)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *MockRepository) MarkMatchAttempted(ctx context.Context, documentIDs []int64, at time.Time) error {
	if m.MarkAttemptedErr != nil {
		return m.MarkAttemptedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range documentIDs {
		m.attempted[id] = at
	}
	return nil
}

// MatchAttemptedAt returns when a document was last scored, for assertions
func (m *MockRepository) MatchAttemptedAt(documentID int64) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.attempted[documentID]
	return at, ok
}

// TransactionRepository

func (m *MockRepository) CreateTransaction(ctx context.Context, txn *matcher.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn.ID = m.id()
	if txn.CompanyID == 0 {
		if a, ok := m.accounts[txn.AccountID]; ok {
			txn.CompanyID = a.CompanyID
		}
	}
	t := *txn
	m.transactions[t.ID] = &t
	return nil
}

func (m *MockRepository) ImportTransaction(ctx context.Context, txn *ImportedTransaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := m.fingerprints[txn.AccountID]
	if seen == nil {
		seen = make(map[string]bool)
		m.fingerprints[txn.AccountID] = seen
	}
	if txn.Fingerprint != "" && seen[txn.Fingerprint] {
		return false, nil
	}
	if txn.Fingerprint != "" {
		seen[txn.Fingerprint] = true
	}

	txn.ID = m.id()
	var companyID int64
	if a, ok := m.accounts[txn.AccountID]; ok {
		companyID = a.CompanyID
	}
	m.transactions[txn.ID] = &matcher.Transaction{
		ID:        txn.ID,
		CompanyID: companyID,
		AccountID: txn.AccountID,
		Amount:    txn.Amount,
		Date:      txn.Date,
		Reference: txn.Reference,
	}
	return true, nil
}

func (m *MockRepository) HasImportFingerprint(ctx context.Context, accountID int64, fingerprint string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fingerprints[accountID][fingerprint], nil
}

func (m *MockRepository) GetTransaction(ctx context.Context, id int64) (*matcher.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (m *MockRepository) ListTransactions(ctx context.Context, companyID int64) ([]*matcher.Transaction, error) {
	if m.ListTransactionsErr != nil {
		return nil, m.ListTransactionsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var txns []*matcher.Transaction
	for _, t := range m.transactions {
		if t.CompanyID == companyID {
			copied := *t
			txns = append(txns, &copied)
		}
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].ID < txns[j].ID })
	return txns, nil
}

// PartyRepository

func (m *MockRepository) CreateParty(ctx context.Context, party *matcher.Party) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	party.ID = m.id()
	p := *party
	m.parties[p.ID] = &p
	return nil
}

func (m *MockRepository) GetParty(ctx context.Context, id int64) (*matcher.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

// MatchLedger

func (m *MockRepository) CreateMatch(ctx context.Context, nm ledger.NewMatch) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateMatchCalls++
	m.LastNewMatch = &nm
	if m.CreateMatchErr != nil && m.CreateMatchCalls > m.CreateMatchFailAfter {
		return 0, false, m.CreateMatchErr
	}
	if err := nm.Validate(); err != nil {
		return 0, false, err
	}

	for _, existing := range m.matches {
		if existing.DocumentID == nm.DocumentID && existing.TransactionID == nm.TransactionID {
			return existing.ID, false, nil
		}
	}

	match := &ledger.Match{
		ID:            m.id(),
		DocumentID:    nm.DocumentID,
		TransactionID: nm.TransactionID,
		Confidence:    nm.Confidence,
		MatchType:     nm.MatchType,
		MatchedBy:     nm.MatchedBy,
		CreatedAt:     time.Now().UTC(),
	}
	m.matches[match.ID] = match
	return match.ID, true, nil
}

func (m *MockRepository) RemoveMatch(ctx context.Context, documentID, transactionID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.matches {
		if existing.DocumentID == documentID && existing.TransactionID == transactionID {
			delete(m.matches, id)
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) MatchExists(ctx context.Context, documentID, transactionID int64) (bool, error) {
	if m.MatchExistsErr != nil {
		return false, m.MatchExistsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.matches {
		if existing.DocumentID == documentID && existing.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) ListMatchesForTransaction(ctx context.Context, transactionID int64) ([]*ledger.Match, error) {
	return m.filterMatches(func(match *ledger.Match) bool { return match.TransactionID == transactionID }), nil
}

func (m *MockRepository) ListMatchesForDocument(ctx context.Context, documentID int64) ([]*ledger.Match, error) {
	return m.filterMatches(func(match *ledger.Match) bool { return match.DocumentID == documentID }), nil
}

func (m *MockRepository) ListMatchesForCompany(ctx context.Context, companyID int64) ([]*ledger.Match, error) {
	m.mu.Lock()
	docs := make(map[int64]bool)
	for _, d := range m.documents {
		if d.CompanyID == companyID {
			docs[d.ID] = true
		}
	}
	m.mu.Unlock()
	return m.filterMatches(func(match *ledger.Match) bool { return docs[match.DocumentID] }), nil
}

func (m *MockRepository) filterMatches(keep func(*ledger.Match) bool) []*ledger.Match {
	m.mu.Lock()
	defer m.mu.Unlock()

	matches := make([]*ledger.Match, 0)
	for _, match := range m.matches {
		if keep(match) {
			copied := *match
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches
}

// MatchRunRepository

func (m *MockRepository) StartMatchRun(ctx context.Context, run *MatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartRunCalled = true
	if m.StartMatchRunErr != nil {
		return m.StartMatchRunErr
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	r := *run
	m.runs[r.ID] = &r
	return nil
}

func (m *MockRepository) CompleteMatchRun(ctx context.Context, run *MatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := *run
	m.runs[r.ID] = &r
	m.CompletedRuns = append(m.CompletedRuns, &r)
	return nil
}

func (m *MockRepository) GetMatchRun(ctx context.Context, id string) (*MatchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (m *MockRepository) ListMatchRuns(ctx context.Context, companyID int64, limit int) ([]*MatchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]*MatchRun, 0)
	for _, r := range m.runs {
		if companyID > 0 && r.CompanyID != companyID {
			continue
		}
		copied := *r
		runs = append(runs, &copied)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
