package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/eshaffer321/openvera/internal/domain/matcher"
)

const (
	// DefaultAcceptThreshold is the minimum confidence for an automatic match
	DefaultAcceptThreshold = 70

	// NearMissFloor is the lowest confidence reported as a near miss
	NearMissFloor = 50
)

// TransactionSource lists a company's bank transactions
type TransactionSource interface {
	ListTransactions(ctx context.Context, companyID int64) ([]*matcher.Transaction, error)
}

// PartySource looks up counterparties. A missing party is (nil, nil).
type PartySource interface {
	GetParty(ctx context.Context, id int64) (*matcher.Party, error)
}

// LedgerReader answers whether a pair is already recorded
type LedgerReader interface {
	MatchExists(ctx context.Context, documentID, transactionID int64) (bool, error)
}

// UnmatchedReason explains why a scorable document produced no proposal
type UnmatchedReason string

const (
	ReasonNoCandidates   UnmatchedReason = "no_candidates"
	ReasonBelowThreshold UnmatchedReason = "below_threshold"
)

// Proposal is a scored document-transaction pair
type Proposal struct {
	DocumentID    int64 `json:"document_id"`
	TransactionID int64 `json:"transaction_id"`
	Confidence    int   `json:"confidence"`
	DateDiffDays  int   `json:"date_diff_days"`
	AmountMatched bool  `json:"amount_matched"`
	PartyMatched  bool  `json:"party_matched"`
	AmountCount   int   `json:"amount_count"`
}

func newProposal(documentID, transactionID int64, result *matcher.ScoreResult) Proposal {
	return Proposal{
		DocumentID:    documentID,
		TransactionID: transactionID,
		Confidence:    result.Confidence,
		DateDiffDays:  result.DateDiffDays,
		AmountMatched: result.AmountMatched,
		PartyMatched:  result.PartyMatched,
		AmountCount:   result.AmountCount,
	}
}

// SkippedDocument is a document that never reached scoring
type SkippedDocument struct {
	DocumentID int64              `json:"document_id"`
	Reason     matcher.SkipReason `json:"reason"`
}

// UnmatchedDocument is a scored document without any proposal
type UnmatchedDocument struct {
	DocumentID     int64           `json:"document_id"`
	Reason         UnmatchedReason `json:"reason"`
	BestConfidence int             `json:"best_confidence,omitempty"`
}

// Report is the outcome of one selection pass
type Report struct {
	CompanyID       int64               `json:"company_id"`
	AcceptThreshold int                 `json:"accept_threshold"`
	DocumentsFound  int                 `json:"documents_found"`
	Scored          []int64             `json:"-"`
	Proposals       []Proposal          `json:"proposals"`
	NearMisses      []Proposal          `json:"near_misses"`
	Skipped         []SkippedDocument   `json:"skipped"`
	Unmatched       []UnmatchedDocument `json:"unmatched"`
	AlreadyMatched  int                 `json:"already_matched"`
}

// SelectOptions tunes one selection pass
type SelectOptions struct {
	AcceptThreshold int
	// Progress is called after each document with the number processed so far
	Progress func(done, total int)
}

// Selector scores documents against a company's candidate pool and picks
// the pairs worth recording
type Selector struct {
	transactions TransactionSource
	parties      PartySource
	ledger       LedgerReader
	logger       *slog.Logger
}

// NewSelector creates a selector
func NewSelector(transactions TransactionSource, parties PartySource, ledger LedgerReader, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		transactions: transactions,
		parties:      parties,
		ledger:       ledger,
		logger:       logger,
	}
}

// Candidates builds the company's candidate pool
func (s *Selector) Candidates(ctx context.Context, companyID int64) (*matcher.CandidatePool, error) {
	txns, err := s.transactions.ListTransactions(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for company %d: %w", companyID, err)
	}
	return matcher.BuildCandidatePool(txns), nil
}

// ProposeMatches scores every document against every candidate and returns
// all pairs at or above the threshold. Several transactions may be proposed
// for one document and several documents for one transaction. Pairs already
// in the ledger are counted, not proposed again.
//
// Cancellation is checked between documents; the partial report is returned
// with the context error.
func (s *Selector) ProposeMatches(ctx context.Context, companyID int64, docs []*matcher.Document, opts SelectOptions) (*Report, error) {
	report := &Report{
		CompanyID:       companyID,
		AcceptThreshold: opts.AcceptThreshold,
		DocumentsFound:  len(docs),
		Proposals:       make([]Proposal, 0),
		NearMisses:      make([]Proposal, 0),
		Skipped:         make([]SkippedDocument, 0),
		Unmatched:       make([]UnmatchedDocument, 0),
	}

	pool, err := s.Candidates(ctx, companyID)
	if err != nil {
		return report, err
	}

	s.logger.Debug("candidate pool built",
		"company_id", companyID,
		"candidates", len(pool.Transactions),
		"distinct_amounts", len(pool.Index))

	parties := make(map[int64]*matcher.Party)

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := s.selectForDocument(ctx, doc, pool, parties, opts.AcceptThreshold, report); err != nil {
			return report, err
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(docs))
		}
	}

	return report, nil
}

func (s *Selector) selectForDocument(
	ctx context.Context,
	doc *matcher.Document,
	pool *matcher.CandidatePool,
	parties map[int64]*matcher.Party,
	threshold int,
	report *Report,
) error {
	if reason := matcher.Validate(doc); reason != "" {
		s.logger.Debug("document skipped", "document_id", doc.ID, "reason", reason)
		report.Skipped = append(report.Skipped, SkippedDocument{DocumentID: doc.ID, Reason: reason})
		return nil
	}
	report.Scored = append(report.Scored, doc.ID)

	party, err := s.partyFor(ctx, doc, parties)
	if err != nil {
		return err
	}

	var proposals, nearMisses []Proposal
	best := -1
	alreadyMatched := false

	for _, txn := range pool.Transactions {
		result := matcher.Score(doc, txn, party, pool.Index)
		if result == nil {
			continue
		}
		if result.Confidence > best {
			best = result.Confidence
		}

		switch {
		case result.Confidence >= threshold:
			exists, err := s.ledger.MatchExists(ctx, doc.ID, txn.ID)
			if err != nil {
				return fmt.Errorf("failed to check ledger for document %d: %w", doc.ID, err)
			}
			if exists {
				alreadyMatched = true
				report.AlreadyMatched++
				continue
			}
			proposals = append(proposals, newProposal(doc.ID, txn.ID, result))
		case result.Confidence >= NearMissFloor:
			nearMisses = append(nearMisses, newProposal(doc.ID, txn.ID, result))
		}
	}

	sortProposals(proposals)
	sortProposals(nearMisses)
	report.Proposals = append(report.Proposals, proposals...)
	report.NearMisses = append(report.NearMisses, nearMisses...)

	for _, nm := range nearMisses {
		s.logger.Debug("near miss",
			"document_id", nm.DocumentID,
			"transaction_id", nm.TransactionID,
			"confidence", nm.Confidence)
	}

	if len(proposals) == 0 && !alreadyMatched {
		unmatched := UnmatchedDocument{DocumentID: doc.ID, Reason: ReasonNoCandidates}
		if best >= 0 {
			unmatched.Reason = ReasonBelowThreshold
			unmatched.BestConfidence = best
		}
		report.Unmatched = append(report.Unmatched, unmatched)
	}
	return nil
}

// partyFor resolves the document's party once per run
func (s *Selector) partyFor(ctx context.Context, doc *matcher.Document, cache map[int64]*matcher.Party) (*matcher.Party, error) {
	if doc.PartyID == nil || s.parties == nil {
		return nil, nil
	}
	if party, ok := cache[*doc.PartyID]; ok {
		return party, nil
	}
	party, err := s.parties.GetParty(ctx, *doc.PartyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load party %d: %w", *doc.PartyID, err)
	}
	cache[*doc.PartyID] = party
	return party, nil
}

// sortProposals orders by confidence, best first, then transaction ID
func sortProposals(proposals []Proposal) {
	sort.SliceStable(proposals, func(i, j int) bool {
		if proposals[i].Confidence != proposals[j].Confidence {
			return proposals[i].Confidence > proposals[j].Confidence
		}
		return proposals[i].TransactionID < proposals[j].TransactionID
	})
}
