package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Helper to create a base-currency document
func makeDocument(id int64, amount string, docDate time.Time) *Document {
	return &Document{
		ID:        id,
		CompanyID: 1,
		Amount:    decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		Currency:  "SEK",
		DocDate:   &docDate,
	}
}

// Helper to create test transaction
func makeTransaction(id int64, amount string, txnDate time.Time) *Transaction {
	return &Transaction{
		ID:        id,
		CompanyID: 1,
		Amount:    decimal.RequireFromString(amount),
		Date:      txnDate,
	}
}

func TestScore_UniqueExactNextDay(t *testing.T) {
	// Arrange
	doc := makeDocument(1, "584.00", date(2025, 2, 19))
	txn := makeTransaction(10, "-584.00", date(2025, 2, 20))
	pool := BuildCandidatePool([]*Transaction{txn})

	// Act
	result := Score(doc, txn, nil, pool.Index)

	// Assert
	require.NotNil(t, result)
	assert.Equal(t, 100, result.Confidence)
	assert.Equal(t, 95, result.BaseConfidence)
	assert.Equal(t, 1, result.DateDiffDays)
	assert.True(t, result.AmountMatched)
	assert.Equal(t, 1, result.AmountCount)
}

func TestScore_UniqueExactNineDays(t *testing.T) {
	doc := makeDocument(1, "584.00", date(2025, 2, 19))
	txn := makeTransaction(10, "-584.00", date(2025, 2, 28))
	pool := BuildCandidatePool([]*Transaction{txn})

	result := Score(doc, txn, nil, pool.Index)

	require.NotNil(t, result)
	assert.Equal(t, 80, result.Confidence)
	assert.Equal(t, 75, result.BaseConfidence)
	assert.Equal(t, 9, result.DateDiffDays)
}

func TestScore_CommonAmountPenalised(t *testing.T) {
	// Arrange: six candidates share 190.00
	doc := makeDocument(1, "190.00", date(2025, 3, 1))
	var txns []*Transaction
	for i := 0; i < 6; i++ {
		txns = append(txns, makeTransaction(int64(i+1), "-190.00", date(2025, 3, 3+i*10)))
	}
	pool := BuildCandidatePool(txns)

	// Act
	result := Score(doc, txns[0], nil, pool.Index)

	// Assert
	require.NotNil(t, result)
	assert.Equal(t, 6, result.AmountCount)
	assert.Equal(t, 80, result.Confidence)
}

func TestScore_Tiers(t *testing.T) {
	docDate := date(2025, 5, 10)

	tests := []struct {
		name     string
		txAmount string
		dayDiff  int
		wantBase int
		wantNil  bool
	}{
		{name: "exact same day", txAmount: "-100.00", dayDiff: 0, wantBase: 95},
		{name: "exact 3 days", txAmount: "-100.00", dayDiff: 3, wantBase: 95},
		{name: "exact 3 days before", txAmount: "-100.00", dayDiff: -3, wantBase: 95},
		{name: "exact 4 days", txAmount: "-100.00", dayDiff: 4, wantBase: 85},
		{name: "exact 7 days", txAmount: "-100.00", dayDiff: 7, wantBase: 85},
		{name: "exact 8 days", txAmount: "-100.00", dayDiff: 8, wantBase: 75},
		{name: "exact 14 days", txAmount: "-100.00", dayDiff: 14, wantBase: 75},
		{name: "exact 15 days", txAmount: "-100.00", dayDiff: 15, wantNil: true},
		{name: "exact 15 days before", txAmount: "-100.00", dayDiff: -15, wantNil: true},
		{name: "within one cent", txAmount: "-100.01", dayDiff: 0, wantBase: 95},
		{name: "close same day", txAmount: "-100.50", dayDiff: 0, wantBase: 70},
		{name: "close 7 days", txAmount: "-99.00", dayDiff: 7, wantBase: 70},
		{name: "close 8 days", txAmount: "-100.50", dayDiff: 8, wantNil: true},
		{name: "more than 1.00 off", txAmount: "-101.01", dayDiff: 0, wantNil: true},
		{name: "income never fits an expense", txAmount: "100.00", dayDiff: 0, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := makeDocument(1, "100.00", docDate)
			txn := makeTransaction(1, tt.txAmount, docDate.AddDate(0, 0, tt.dayDiff))

			result := Score(doc, txn, nil, AmountFrequencyIndex{})

			if tt.wantNil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.wantBase, result.BaseConfidence)
			assert.Equal(t, tt.dayDiff, result.DateDiffDays)
			// Nothing indexed, so no uniqueness modifier
			assert.Equal(t, tt.wantBase, result.Confidence)
		})
	}
}

func TestScore_UniquenessBands(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{count: 1, want: 90},
		{count: 2, want: 80},
		{count: 3, want: 75},
		{count: 4, want: 75},
		{count: 5, want: 70},
		{count: 12, want: 70},
	}

	for _, tt := range tests {
		doc := makeDocument(1, "250.00", date(2025, 1, 1))
		txn := makeTransaction(1, "-250.00", date(2025, 1, 5))
		index := AmountFrequencyIndex{}
		for i := 0; i < tt.count; i++ {
			index.Add(txn.Amount)
		}

		result := Score(doc, txn, nil, index)

		require.NotNil(t, result)
		assert.Equal(t, tt.want, result.Confidence, "count %d", tt.count)
	}
}

func TestScore_PartyPatternBonus(t *testing.T) {
	partyID := int64(7)
	party := &Party{ID: partyID, Name: "Telia", Patterns: []string{"TELIA", "telia sverige"}}

	doc := makeDocument(1, "499.00", date(2025, 4, 1))
	doc.PartyID = &partyID
	txn := makeTransaction(1, "-499.00", date(2025, 4, 10))
	txn.Reference = "Autogiro Telia Sverige AB"

	index := AmountFrequencyIndex{}
	index.Add(txn.Amount)
	index.Add(txn.Amount)

	result := Score(doc, txn, party, index)

	require.NotNil(t, result)
	assert.True(t, result.PartyMatched)
	// 75 base, +5 party, -5 for two candidates
	assert.Equal(t, 75, result.Confidence)
}

func TestScore_PartyIgnoredWithoutDocumentParty(t *testing.T) {
	party := &Party{ID: 7, Patterns: []string{"telia"}}
	doc := makeDocument(1, "499.00", date(2025, 4, 1))
	txn := makeTransaction(1, "-499.00", date(2025, 4, 1))
	txn.Reference = "TELIA"

	result := Score(doc, txn, party, AmountFrequencyIndex{})

	require.NotNil(t, result)
	assert.False(t, result.PartyMatched)
	assert.Equal(t, 95, result.Confidence)
}

func TestScore_ClampedToHundred(t *testing.T) {
	partyID := int64(3)
	party := &Party{ID: partyID, Patterns: []string{"spotify"}}
	doc := makeDocument(1, "119.00", date(2025, 6, 1))
	doc.PartyID = &partyID
	txn := makeTransaction(1, "-119.00", date(2025, 6, 2))
	txn.Reference = "SPOTIFY P1234"
	pool := BuildCandidatePool([]*Transaction{txn})

	result := Score(doc, txn, party, pool.Index)

	require.NotNil(t, result)
	assert.Equal(t, 100, result.Confidence)
}

func TestScore_UniquenessUsesDocumentAmount(t *testing.T) {
	// Arrange: a close payment with a unique amount next to five candidates
	// carrying the document's exact amount
	doc := makeDocument(1, "100.00", date(2025, 6, 1))
	payment := makeTransaction(1, "-100.50", date(2025, 6, 1))
	txns := []*Transaction{payment}
	for i := 0; i < 5; i++ {
		txns = append(txns, makeTransaction(int64(i+2), "-100.00", date(2025, 6, 20+i)))
	}
	pool := BuildCandidatePool(txns)

	// Act
	result := Score(doc, payment, nil, pool.Index)

	// Assert: 70 base, -15 for five candidates at 100.00
	require.NotNil(t, result)
	assert.Equal(t, 70, result.BaseConfidence)
	assert.Equal(t, 5, result.AmountCount)
	assert.Equal(t, 55, result.Confidence)
}

func TestScore_UniquenessUsesConvertedAmount(t *testing.T) {
	doc := makeDocument(1, "50.00", date(2025, 7, 1))
	doc.Currency = "EUR"
	doc.AmountSEK = decimal.NewNullDecimal(decimal.RequireFromString("571.25"))
	txn := makeTransaction(1, "-571.00", date(2025, 7, 1))

	index := AmountFrequencyIndex{}
	index.Add(decimal.RequireFromString("-571.25"))
	index.Add(decimal.RequireFromString("-571.25"))
	index.Add(txn.Amount)

	result := Score(doc, txn, nil, index)

	require.NotNil(t, result)
	assert.Equal(t, 2, result.AmountCount)
	assert.Equal(t, 65, result.Confidence)
}

func TestScore_ForeignCurrencyUsesConvertedAmount(t *testing.T) {
	doc := makeDocument(1, "50.00", date(2025, 7, 1))
	doc.Currency = "EUR"
	doc.AmountSEK = decimal.NewNullDecimal(decimal.RequireFromString("571.25"))
	txn := makeTransaction(1, "-571.25", date(2025, 7, 2))

	result := Score(doc, txn, nil, AmountFrequencyIndex{})

	require.NotNil(t, result)
	assert.True(t, result.AmountMatched)

	doc.AmountSEK = decimal.NullDecimal{}
	assert.Nil(t, Score(doc, txn, nil, AmountFrequencyIndex{}))
}

func TestScore_MissingFields(t *testing.T) {
	txn := makeTransaction(1, "-10.00", date(2025, 1, 1))

	noDate := makeDocument(1, "10.00", date(2025, 1, 1))
	noDate.DocDate = nil
	assert.Nil(t, Score(noDate, txn, nil, AmountFrequencyIndex{}))

	noAmount := makeDocument(2, "10.00", date(2025, 1, 1))
	noAmount.Amount = decimal.NullDecimal{}
	assert.Nil(t, Score(noAmount, txn, nil, AmountFrequencyIndex{}))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *Document)
		want   SkipReason
	}{
		{name: "scorable", modify: func(d *Document) {}, want: ""},
		{name: "empty currency is base", modify: func(d *Document) { d.Currency = "" }, want: ""},
		{name: "lowercase base currency", modify: func(d *Document) { d.Currency = "sek" }, want: ""},
		{name: "missing amount", modify: func(d *Document) { d.Amount = decimal.NullDecimal{} }, want: SkipMissingAmount},
		{name: "missing date", modify: func(d *Document) { d.DocDate = nil }, want: SkipMissingDate},
		{name: "foreign without conversion", modify: func(d *Document) { d.Currency = "USD" }, want: SkipMissingFXAmount},
		{name: "archived", modify: func(d *Document) { d.IsArchived = true }, want: SkipArchived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := makeDocument(1, "10.00", date(2025, 1, 1))
			tt.modify(doc)
			assert.Equal(t, tt.want, Validate(doc))
		})
	}
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	from := time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
	to := time.Date(2025, 3, 2, 0, 15, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysBetween(from, to))
	assert.Equal(t, -1, DaysBetween(to, from))
}
