package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/openvera/internal/domain/ledger"
	"github.com/eshaffer321/openvera/internal/domain/matcher"
	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

// MockLedger is a testify mock of LedgerReader
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) MatchExists(ctx context.Context, documentID, transactionID int64) (bool, error) {
	args := m.Called(ctx, documentID, transactionID)
	return args.Bool(0), args.Error(1)
}

// testBooks is a mock repository seeded with one company and account
type testBooks struct {
	repo      *storage.MockRepository
	companyID int64
	accountID int64
}

func newTestBooks(t *testing.T) *testBooks {
	t.Helper()
	ctx := context.Background()
	repo := storage.NewMockRepository()

	company := &storage.Company{Slug: "acme", Name: "Acme AB"}
	require.NoError(t, repo.CreateCompany(ctx, company))
	account := &storage.Account{CompanyID: company.ID, Name: "Bank"}
	require.NoError(t, repo.CreateAccount(ctx, account))

	return &testBooks{repo: repo, companyID: company.ID, accountID: account.ID}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func (b *testBooks) doc(t *testing.T, amount string, date time.Time) *matcher.Document {
	t.Helper()
	d := &matcher.Document{
		CompanyID: b.companyID,
		Amount:    decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		Currency:  "SEK",
		DocDate:   &date,
	}
	require.NoError(t, b.repo.CreateDocument(context.Background(), d))
	return d
}

func (b *testBooks) txn(t *testing.T, amount string, date time.Time, reference ...string) *matcher.Transaction {
	t.Helper()
	txn := &matcher.Transaction{
		CompanyID: b.companyID,
		AccountID: b.accountID,
		Amount:    decimal.RequireFromString(amount),
		Date:      date,
	}
	if len(reference) > 0 {
		txn.Reference = reference[0]
	}
	require.NoError(t, b.repo.CreateTransaction(context.Background(), txn))
	return txn
}

func (b *testBooks) selector() *Selector {
	return NewSelector(b.repo, b.repo, b.repo, nil)
}

func TestSelector_ProposesAboveThreshold(t *testing.T) {
	// Arrange
	books := newTestBooks(t)
	doc := books.doc(t, "584.00", day(2025, 2, 19))
	txn := books.txn(t, "-584.00", day(2025, 2, 20))
	books.txn(t, "-99.00", day(2025, 2, 20))

	// Act
	report, err := books.selector().ProposeMatches(context.Background(), books.companyID,
		[]*matcher.Document{doc}, SelectOptions{AcceptThreshold: DefaultAcceptThreshold})

	// Assert
	require.NoError(t, err)
	require.Len(t, report.Proposals, 1)
	assert.Equal(t, doc.ID, report.Proposals[0].DocumentID)
	assert.Equal(t, txn.ID, report.Proposals[0].TransactionID)
	assert.Equal(t, 100, report.Proposals[0].Confidence)
	assert.Empty(t, report.Unmatched)
	assert.Equal(t, []int64{doc.ID}, report.Scored)
}

func TestSelector_EmitsEveryQualifyingPair(t *testing.T) {
	books := newTestBooks(t)
	doc := books.doc(t, "300.00", day(2025, 5, 1))
	near := books.txn(t, "-300.00", day(2025, 5, 2))
	far := books.txn(t, "-300.00", day(2025, 5, 6))

	report, err := books.selector().ProposeMatches(context.Background(), books.companyID,
		[]*matcher.Document{doc}, SelectOptions{AcceptThreshold: DefaultAcceptThreshold})

	require.NoError(t, err)
	require.Len(t, report.Proposals, 2)
	// Best first: 95-5 and 85-5
	assert.Equal(t, near.ID, report.Proposals[0].TransactionID)
	assert.Equal(t, 90, report.Proposals[0].Confidence)
	assert.Equal(t, far.ID, report.Proposals[1].TransactionID)
	assert.Equal(t, 80, report.Proposals[1].Confidence)
}

func TestSelector_OneTransactionManyDocuments(t *testing.T) {
	books := newTestBooks(t)
	doc1 := books.doc(t, "120.00", day(2025, 5, 1))
	doc2 := books.doc(t, "120.00", day(2025, 5, 3))
	txn := books.txn(t, "-120.00", day(2025, 5, 2))

	report, err := books.selector().ProposeMatches(context.Background(), books.companyID,
		[]*matcher.Document{doc1, doc2}, SelectOptions{AcceptThreshold: DefaultAcceptThreshold})

	require.NoError(t, err)
	require.Len(t, report.Proposals, 2)
	for _, p := range report.Proposals {
		assert.Equal(t, txn.ID, p.TransactionID)
	}
}

func TestSelector_NearMissIsReportedNotProposed(t *testing.T) {
	books := newTestBooks(t)
	doc := books.doc(t, "100.00", day(2025, 6, 1))
	// Within 1.00 gives 70; two candidates at the document's amount, both
	// outside the date window, take 5
	books.txn(t, "-100.50", day(2025, 6, 2))
	books.txn(t, "-100.00", day(2025, 8, 1))
	books.txn(t, "-100.00", day(2025, 8, 5))

	report, err := books.selector().ProposeMatches(context.Background(), books.companyID,
		[]*matcher.Document{doc}, SelectOptions{AcceptThreshold: DefaultAcceptThreshold})

	require.NoError(t, err)
	assert.Empty(t, report.Proposals)
	require.Len(t, report.NearMisses, 1)
	assert.Equal(t, 65, report.NearMisses[0].Confidence)
	require.Len(t, report.Unmatched, 1)
	assert.Equal(t, ReasonBelowThreshold, report.Unmatched[0].Reason)
	assert.Equal(t, 65, report.Unmatched[0].BestConfidence)
}

func TestSelector_ThresholdIsConfigurable(t *testing.T) {
	books := newTestBooks(t)
	doc := books.doc(t, "100.00", day(2025, 6, 1))
	books.txn(t, "-100.50", day(2025, 6, 2))
	books.txn(t, "-100.00", day(2025, 8, 1))
	books.txn(t, "-100.00", day(2025, 8, 5))

	report, err := books.selector().ProposeMatches(context.Background(), books.companyID,
		[]*matcher.Document{doc}, SelectOptions{AcceptThreshold: 60})

	require.NoError(t, err)
	require.Len(t, report.Proposals, 1)
	assert.Equal(t, 65, report.Proposals[0].Confidence)
	assert.Empty(t, report.NearMisses)
}

func TestSelector_SkipsUnscorableDocuments(t *testing.T) {
	books := newTestBooks(t)
	books.txn(t, "-10.00", day(2025, 1, 1))

	noAmount := books.doc(t, "10.00", day(2025, 1, 1))
	noAmount.Amount = decimal.NullDecimal{}
	noDate := books.doc(t, "10.00", day(2025, 1, 1))
	noDate.DocDate = nil
	foreign := books.doc(t, "1.00", day(2025, 1, 1))
	foreign.Currency = "EUR"

	report, err := books.selector().ProposeMatches(context.Background(), books.companyID,
		[]*matcher.Document{noAmount, noDate, foreign}, SelectOptions{AcceptThreshold: DefaultAcceptThreshold})

	require.NoError(t, err)
	assert.Equal(t, []SkippedDocument{
		{DocumentID: noAmount.ID, Reason: matcher.SkipMissingAmount},
		{DocumentID: noDate.ID, Reason: matcher.SkipMissingDate},
		{DocumentID: foreign.ID, Reason: matcher.SkipMissingFXAmount},
	}, report.Skipped)
	assert.Empty(t, report.Proposals)
	assert.Empty(t, report.Unmatched)
	assert.Empty(t, report.Scored)
}

func TestSelector_NoCandidates(t *testing.T) {
	books := newTestBooks(t)
	doc := books.doc(t, "50.00", day(2025, 1, 1))
	books.txn(t, "50.00", day(2025, 1, 1)) // Income, never a candidate

	report, err := books.selector().ProposeMatches(context.Background(), books.companyID,
		[]*matcher.Document{doc}, SelectOptions{AcceptThreshold: DefaultAcceptThreshold})

	require.NoError(t, err)
	require.Len(t, report.Unmatched, 1)
	assert.Equal(t, ReasonNoCandidates, report.Unmatched[0].Reason)
	assert.Zero(t, report.Unmatched[0].BestConfidence)
}

func TestSelector_SkipsPairsAlreadyInLedger(t *testing.T) {
	books := newTestBooks(t)
	ctx := context.Background()
	doc := books.doc(t, "584.00", day(2025, 2, 19))
	txn := books.txn(t, "-584.00", day(2025, 2, 20))

	_, _, err := books.repo.CreateMatch(ctx, ledger.NewMatch{
		DocumentID:    doc.ID,
		TransactionID: txn.ID,
		MatchType:     ledger.MatchTypeApproved,
		MatchedBy:     ledger.MatchedByUser,
	})
	require.NoError(t, err)

	report, err := books.selector().ProposeMatches(ctx, books.companyID,
		[]*matcher.Document{doc}, SelectOptions{AcceptThreshold: DefaultAcceptThreshold})

	require.NoError(t, err)
	assert.Empty(t, report.Proposals)
	assert.Empty(t, report.Unmatched)
	assert.Equal(t, 1, report.AlreadyMatched)
}

func TestSelector_PartyPatternBonus(t *testing.T) {
	books := newTestBooks(t)
	ctx := context.Background()

	party := &matcher.Party{Name: "Telia", Patterns: []string{"telia"}}
	require.NoError(t, books.repo.CreateParty(ctx, party))

	doc := books.doc(t, "499.00", day(2025, 4, 1))
	doc.PartyID = &party.ID
	withRef := books.txn(t, "-499.00", day(2025, 4, 2), "AUTOGIRO TELIA SVERIGE")
	books.txn(t, "-499.00", day(2025, 4, 12))
	books.txn(t, "-499.00", day(2025, 6, 1))

	report, err := books.selector().ProposeMatches(ctx, books.companyID,
		[]*matcher.Document{doc}, SelectOptions{AcceptThreshold: DefaultAcceptThreshold})

	require.NoError(t, err)
	require.Len(t, report.Proposals, 1)
	assert.Equal(t, withRef.ID, report.Proposals[0].TransactionID)
	assert.True(t, report.Proposals[0].PartyMatched)
	// 95 base, +5 party, -10 for three candidates
	assert.Equal(t, 90, report.Proposals[0].Confidence)
	// The 11 day candidate lands at 75-10
	require.Len(t, report.NearMisses, 1)
	assert.Equal(t, 65, report.NearMisses[0].Confidence)
}

func TestSelector_LedgerErrorAborts(t *testing.T) {
	books := newTestBooks(t)
	doc := books.doc(t, "584.00", day(2025, 2, 19))
	books.txn(t, "-584.00", day(2025, 2, 20))

	ledgerMock := new(MockLedger)
	ledgerMock.On("MatchExists", mock.Anything, doc.ID, mock.Anything).Return(false, errors.New("database is locked"))

	selector := NewSelector(books.repo, books.repo, ledgerMock, nil)
	_, err := selector.ProposeMatches(context.Background(), books.companyID,
		[]*matcher.Document{doc}, SelectOptions{AcceptThreshold: DefaultAcceptThreshold})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	ledgerMock.AssertExpectations(t)
}

func TestSelector_TransactionSourceError(t *testing.T) {
	books := newTestBooks(t)
	books.repo.ListTransactionsErr = errors.New("boom")

	_, err := books.selector().ProposeMatches(context.Background(), books.companyID, nil,
		SelectOptions{AcceptThreshold: DefaultAcceptThreshold})

	assert.ErrorIs(t, err, books.repo.ListTransactionsErr)
}

func TestSelector_HonoursCancellation(t *testing.T) {
	books := newTestBooks(t)
	doc1 := books.doc(t, "10.00", day(2025, 1, 1))
	doc2 := books.doc(t, "20.00", day(2025, 1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	report, err := books.selector().ProposeMatches(ctx, books.companyID, []*matcher.Document{doc1, doc2},
		SelectOptions{
			AcceptThreshold: DefaultAcceptThreshold,
			Progress: func(done, total int) {
				calls++
				cancel()
			},
		})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []int64{doc1.ID}, report.Scored)
}

func TestSelector_ProgressReportsEveryDocument(t *testing.T) {
	books := newTestBooks(t)
	docs := []*matcher.Document{
		books.doc(t, "10.00", day(2025, 1, 1)),
		books.doc(t, "20.00", day(2025, 1, 2)),
		books.doc(t, "30.00", day(2025, 1, 3)),
	}

	var seen [][2]int
	_, err := books.selector().ProposeMatches(context.Background(), books.companyID, docs,
		SelectOptions{
			AcceptThreshold: DefaultAcceptThreshold,
			Progress:        func(done, total int) { seen = append(seen, [2]int{done, total}) },
		})

	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, seen)
}
