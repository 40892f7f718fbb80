package matcher

import (
	"github.com/shopspring/decimal"
)

// AmountFrequencyIndex counts candidate transactions per absolute amount,
// rounded to two decimals
type AmountFrequencyIndex map[string]int

func amountKey(amount decimal.Decimal) string {
	return amount.Abs().StringFixed(2)
}

// Add records one transaction with the given amount
func (idx AmountFrequencyIndex) Add(amount decimal.Decimal) {
	idx[amountKey(amount)]++
}

// Count returns how many indexed transactions share the amount's magnitude
func (idx AmountFrequencyIndex) Count(amount decimal.Decimal) int {
	return idx[amountKey(amount)]
}

// CandidatePool holds a company's payable transactions and their amount index.
// Build it once per run; the index must cover the full candidate set.
type CandidatePool struct {
	Transactions []*Transaction
	Index        AmountFrequencyIndex
}

// BuildCandidatePool keeps expenses that are not internal transfers and
// indexes their amounts. Already matched transactions stay in the pool since
// one payment may settle several documents.
func BuildCandidatePool(transactions []*Transaction) *CandidatePool {
	pool := &CandidatePool{
		Transactions: make([]*Transaction, 0, len(transactions)),
		Index:        make(AmountFrequencyIndex),
	}
	for _, txn := range transactions {
		if txn == nil || !txn.IsCandidate() {
			continue
		}
		pool.Transactions = append(pool.Transactions, txn)
		pool.Index.Add(txn.Amount)
	}
	return pool
}
