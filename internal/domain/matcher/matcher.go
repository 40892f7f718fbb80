// Package matcher scores bank transactions against financial documents.
//
// Scoring is tiered:
//   - The amount and date fit pick a base confidence from a fixed table.
//     The first tier that fits wins, and nothing more than 14 days apart scores.
//   - A party pattern found in the transaction reference adds a bonus.
//   - The amount's frequency among the company's candidates adjusts the
//     score up when it is unique and down when it is common.
//
// Example usage:
//
//	pool := matcher.BuildCandidatePool(transactions)
//	for _, txn := range pool.Transactions {
//		result := matcher.Score(doc, txn, party, pool.Index)
//		if result != nil && result.Confidence >= 70 {
//			// Propose the pair
//		}
//	}
package matcher

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxDateDiffDays is the widest date gap any tier accepts
	MaxDateDiffDays = 14

	// PartyPatternBonus is added when the document's party matches the reference
	PartyPatternBonus = 5

	// MinConfidence and MaxConfidence bound every score after modifiers
	MinConfidence = 0
	MaxConfidence = 100
)

var (
	// exactTolerance absorbs rounding to whole öre
	exactTolerance = decimal.New(1, -2)
	// closeTolerance is the widest amount gap any tier accepts
	closeTolerance = decimal.NewFromInt(1)
)

type amountFit int

const (
	fitNone amountFit = iota
	fitClose
	fitExact
)

type tier struct {
	fit        amountFit
	maxDays    int
	confidence int
}

// baseTiers is evaluated in order; the first tier that fits wins
var baseTiers = []tier{
	{fit: fitExact, maxDays: 3, confidence: 95},
	{fit: fitExact, maxDays: 7, confidence: 85},
	{fit: fitExact, maxDays: MaxDateDiffDays, confidence: 75},
	{fit: fitClose, maxDays: 7, confidence: 70},
}

// uniquenessBands maps how many candidates share an amount to a modifier.
// Checked in order; the first band whose minimum is reached applies.
var uniquenessBands = []struct {
	minCount int
	modifier int
}{
	{minCount: 5, modifier: -15},
	{minCount: 3, modifier: -10},
	{minCount: 2, modifier: -5},
	{minCount: 1, modifier: 5},
}

// Validate returns the reason a document cannot be scored, or "" when it can
func Validate(doc *Document) SkipReason {
	switch {
	case doc.IsArchived:
		return SkipArchived
	case !doc.Amount.Valid:
		return SkipMissingAmount
	case doc.DocDate == nil:
		return SkipMissingDate
	case !doc.IsBaseCurrency() && !doc.AmountSEK.Valid:
		return SkipMissingFXAmount
	}
	return ""
}

// NormalizedAmount returns the document amount in BaseCurrency.
// ok is false when the amount needed for comparison is missing.
func NormalizedAmount(doc *Document) (amount decimal.Decimal, ok bool) {
	if doc.IsBaseCurrency() {
		return doc.Amount.Decimal, doc.Amount.Valid
	}
	return doc.AmountSEK.Decimal, doc.AmountSEK.Valid
}

// Score rates how likely txn pays doc. party is the document's party and may
// be nil. Returns nil when the pair is not a plausible match at all.
func Score(doc *Document, txn *Transaction, party *Party, index AmountFrequencyIndex) *ScoreResult {
	if doc.DocDate == nil {
		return nil
	}
	docAmount, ok := NormalizedAmount(doc)
	if !ok {
		return nil
	}

	// Expenses are negative on the bank side and positive on the document
	txnAmount := txn.Amount.Neg()
	amountDiff := docAmount.Sub(txnAmount).Abs()
	dateDiff := DaysBetween(*doc.DocDate, txn.Date)

	fit := classifyAmount(amountDiff)
	base, ok := baseConfidence(fit, dateDiff)
	if !ok {
		return nil
	}

	result := &ScoreResult{
		BaseConfidence: base,
		DateDiffDays:   dateDiff,
		AmountMatched:  fit == fitExact,
		AmountDiff:     amountDiff,
	}

	confidence := base
	if party != nil && doc.PartyID != nil && party.MatchesReference(txn.Reference) {
		result.PartyMatched = true
		confidence += PartyPatternBonus
	}

	// Uniqueness is judged on the document's amount, not the bank side
	result.AmountCount = index.Count(docAmount)
	confidence += uniquenessModifier(result.AmountCount)

	result.Confidence = clamp(confidence)
	return result
}

// DaysBetween returns the whole calendar days from one date to another
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

func classifyAmount(diff decimal.Decimal) amountFit {
	switch {
	case diff.LessThanOrEqual(exactTolerance):
		return fitExact
	case diff.LessThanOrEqual(closeTolerance):
		return fitClose
	default:
		return fitNone
	}
}

func baseConfidence(fit amountFit, dateDiff int) (int, bool) {
	days := dateDiff
	if days < 0 {
		days = -days
	}
	if fit == fitNone || days > MaxDateDiffDays {
		return 0, false
	}
	for _, t := range baseTiers {
		if fit >= t.fit && days <= t.maxDays {
			return t.confidence, true
		}
	}
	return 0, false
}

// uniquenessModifier returns the adjustment for count candidates sharing the
// amount. A count of zero means the amount was never indexed and gets none.
func uniquenessModifier(count int) int {
	for _, band := range uniquenessBands {
		if count >= band.minCount {
			return band.modifier
		}
	}
	return 0
}

func clamp(confidence int) int {
	if confidence < MinConfidence {
		return MinConfidence
	}
	if confidence > MaxConfidence {
		return MaxConfidence
	}
	return confidence
}
