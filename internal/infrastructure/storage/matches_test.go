package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/openvera/internal/domain/ledger"
	"github.com/eshaffer321/openvera/internal/domain/matcher"
)

func autoMatch(documentID, transactionID int64, confidence int) ledger.NewMatch {
	return ledger.NewMatch{
		DocumentID:    documentID,
		TransactionID: transactionID,
		Confidence:    &confidence,
		MatchType:     ledger.MatchTypeAuto,
		MatchedBy:     ledger.MatchedBySystem,
	}
}

func TestStorage_CreateMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.addDocument(t, "584.00", day(2025, 2, 19), nil)
	txn := f.addTransaction(t, "-584.00", day(2025, 2, 20), "")

	id, created, err := f.store.CreateMatch(ctx, autoMatch(doc.ID, txn.ID, 100))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, id)

	matches, err := f.store.ListMatchesForDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, id, matches[0].ID)
	assert.Equal(t, txn.ID, matches[0].TransactionID)
	require.NotNil(t, matches[0].Confidence)
	assert.Equal(t, 100, *matches[0].Confidence)
	assert.Equal(t, ledger.MatchTypeAuto, matches[0].MatchType)
	assert.Equal(t, ledger.MatchedBySystem, matches[0].MatchedBy)
	assert.False(t, matches[0].CreatedAt.IsZero())
}

func TestStorage_CreateMatch_DuplicateReturnsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.addDocument(t, "100.00", day(2025, 1, 1), nil)
	txn := f.addTransaction(t, "-100.00", day(2025, 1, 1), "")

	firstID, created, err := f.store.CreateMatch(ctx, autoMatch(doc.ID, txn.ID, 95))
	require.NoError(t, err)
	require.True(t, created)

	// A later manual approval of the same pair changes nothing
	approved := autoMatch(doc.ID, txn.ID, 50)
	approved.MatchType = ledger.MatchTypeApproved
	approved.MatchedBy = ledger.MatchedByUser

	secondID, created, err := f.store.CreateMatch(ctx, approved)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, firstID, secondID)

	matches, err := f.store.ListMatchesForTransaction(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ledger.MatchTypeAuto, matches[0].MatchType)
}

func TestStorage_CreateMatch_ConcurrentSamePair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.addDocument(t, "100.00", day(2025, 1, 1), nil)
	txn := f.addTransaction(t, "-100.00", day(2025, 1, 1), "")

	const workers = 8
	ids := make([]int64, workers)
	createdCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, created, err := f.store.CreateMatch(ctx, autoMatch(doc.ID, txn.ID, 95))
			assert.NoError(t, err)
			mu.Lock()
			ids[i] = id
			if created {
				createdCount++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	matches, err := f.store.ListMatchesForDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestStorage_CreateMatch_OptionalConfidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.addDocument(t, "100.00", day(2025, 1, 1), nil)
	txn := f.addTransaction(t, "-100.00", day(2025, 1, 1), "")

	_, _, err := f.store.CreateMatch(ctx, ledger.NewMatch{
		DocumentID:    doc.ID,
		TransactionID: txn.ID,
		MatchType:     ledger.MatchTypeApproved,
		MatchedBy:     ledger.MatchedByUser,
	})
	require.NoError(t, err)

	matches, err := f.store.ListMatchesForDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Nil(t, matches[0].Confidence)
}

func TestStorage_CreateMatch_RejectsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.addDocument(t, "100.00", day(2025, 1, 1), nil)
	txn := f.addTransaction(t, "-100.00", day(2025, 1, 1), "")

	bad := autoMatch(doc.ID, txn.ID, 90)
	bad.MatchType = "maybe"
	_, _, err := f.store.CreateMatch(ctx, bad)
	assert.ErrorIs(t, err, ledger.ErrInvalidMatchType)

	// Foreign keys reject pairs for unknown rows
	_, _, err = f.store.CreateMatch(ctx, autoMatch(doc.ID, 9999, 90))
	assert.Error(t, err)
}

func TestStorage_CreateMatch_PropagatesAccountingCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	party := &matcher.Party{Name: "Telia", Patterns: []string{"TELIA"}, DefaultCode: "6212"}
	require.NoError(t, f.store.CreateParty(ctx, party))
	plain := &matcher.Party{Name: "No code"}
	require.NoError(t, f.store.CreateParty(ctx, plain))

	doc := f.addDocument(t, "499.00", day(2025, 4, 1), &party.ID)
	uncoded := f.addTransaction(t, "-499.00", day(2025, 4, 2), "TELIA")
	coded := f.addTransaction(t, "-499.00", day(2025, 4, 3), "TELIA")
	_, err := f.store.db.Exec(`UPDATE transactions SET accounting_code = '5410' WHERE id = ?`, coded.ID)
	require.NoError(t, err)

	plainDoc := f.addDocument(t, "10.00", day(2025, 4, 1), &plain.ID)
	plainTxn := f.addTransaction(t, "-10.00", day(2025, 4, 1), "")

	for _, pair := range [][2]int64{{doc.ID, uncoded.ID}, {doc.ID, coded.ID}, {plainDoc.ID, plainTxn.ID}} {
		_, _, err := f.store.CreateMatch(ctx, autoMatch(pair[0], pair[1], 80))
		require.NoError(t, err)
	}

	got, err := f.store.GetTransaction(ctx, uncoded.ID)
	require.NoError(t, err)
	assert.Equal(t, "6212", got.AccountingCode)

	got, err = f.store.GetTransaction(ctx, coded.ID)
	require.NoError(t, err)
	assert.Equal(t, "5410", got.AccountingCode, "existing code is kept")

	got, err = f.store.GetTransaction(ctx, plainTxn.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AccountingCode)
}

func TestStorage_RemoveMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := f.addDocument(t, "100.00", day(2025, 1, 1), nil)
	txn := f.addTransaction(t, "-100.00", day(2025, 1, 1), "")
	_, _, err := f.store.CreateMatch(ctx, autoMatch(doc.ID, txn.ID, 95))
	require.NoError(t, err)

	removed, err := f.store.RemoveMatch(ctx, doc.ID, txn.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	exists, err := f.store.MatchExists(ctx, doc.ID, txn.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	removed, err = f.store.RemoveMatch(ctx, doc.ID, txn.ID)
	require.NoError(t, err)
	assert.False(t, removed, "removing an absent pair is not an error")
}

func TestStorage_OneTransactionManyDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc1 := f.addDocument(t, "100.00", day(2025, 1, 1), nil)
	doc2 := f.addDocument(t, "100.00", day(2025, 1, 2), nil)
	txn := f.addTransaction(t, "-100.00", day(2025, 1, 2), "")

	for _, docID := range []int64{doc1.ID, doc2.ID} {
		_, created, err := f.store.CreateMatch(ctx, autoMatch(docID, txn.ID, 80))
		require.NoError(t, err)
		assert.True(t, created)
	}

	byTxn, err := f.store.ListMatchesForTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Len(t, byTxn, 2)

	byCompany, err := f.store.ListMatchesForCompany(ctx, f.company.ID)
	require.NoError(t, err)
	assert.Len(t, byCompany, 2)

	none, err := f.store.ListMatchesForCompany(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}
