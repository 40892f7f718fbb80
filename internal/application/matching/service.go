// Package matching runs batch reconciliation for a company: it selects
// document-transaction pairs and records them in the ledger.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/openvera/internal/domain/ledger"
	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

// ErrInvalidThreshold is returned for an accept threshold outside 0-100
var ErrInvalidThreshold = errors.New("accept threshold must be between 0 and 100")

// RunRequest holds parameters for one batch run
type RunRequest struct {
	CompanyID int64

	// AcceptThreshold overrides the service default when set
	AcceptThreshold *int

	// DryRun scores and reports without touching the ledger
	DryRun bool

	// Rematch includes documents that already have ledger entries.
	// Existing pairs are still never recorded twice.
	Rematch bool

	MatchType ledger.MatchType // Default: auto
	MatchedBy ledger.MatchedBy // Default: system

	Progress func(done, total int)
}

// RunResult is what a batch run did
type RunResult struct {
	RunID      string  `json:"run_id"`
	Status     string  `json:"status"`
	DryRun     bool    `json:"dry_run"`
	Created    int     `json:"created"`
	Duplicates int     `json:"duplicates"`
	CreatedIDs []int64 `json:"created_ids"`
	Report     *Report `json:"report"`
}

// Service runs batch matching. Runs for different companies proceed in
// parallel; runs for the same company wait for each other.
type Service struct {
	store            storage.Repository
	selector         *Selector
	logger           *slog.Logger
	defaultThreshold int
	now              func() time.Time

	// Company-level locking (only one run per company at a time)
	companyLocks map[int64]chan struct{}
	locksMutex   sync.Mutex
}

// NewService creates a matching service. defaultThreshold applies when a
// request does not carry its own.
func NewService(store storage.Repository, defaultThreshold int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:            store,
		selector:         NewSelector(store, store, store, logger),
		logger:           logger,
		defaultThreshold: defaultThreshold,
		now:              time.Now,
		companyLocks:     make(map[int64]chan struct{}),
	}
}

// Selector returns the selector the service runs with
func (s *Service) Selector() *Selector {
	return s.selector
}

// Run selects matches for the company's documents and records them.
//
// A persistence failure aborts the run; pairs written before it stay
// committed and the partial result is returned with the error.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	threshold := s.defaultThreshold
	if req.AcceptThreshold != nil {
		threshold = *req.AcceptThreshold
	}
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidThreshold, threshold)
	}

	matchType := req.MatchType
	if matchType == "" {
		matchType = ledger.MatchTypeAuto
	}
	matchedBy := req.MatchedBy
	if matchedBy == "" {
		matchedBy = ledger.MatchedBySystem
	}
	if !matchType.Valid() {
		return nil, fmt.Errorf("%w: %q", ledger.ErrInvalidMatchType, matchType)
	}
	if !matchedBy.Valid() {
		return nil, fmt.Errorf("%w: %q", ledger.ErrInvalidMatchedBy, matchedBy)
	}

	unlock, err := s.lockCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	logger := s.logger.With("company_id", req.CompanyID)

	run := &storage.MatchRun{
		ID:              uuid.NewString(),
		CompanyID:       req.CompanyID,
		AcceptThreshold: threshold,
		DryRun:          req.DryRun,
		Rematch:         req.Rematch,
		StartedAt:       s.now().UTC(),
		Status:          storage.RunStatusRunning,
	}
	// Run tracking must not block matching
	if err := s.store.StartMatchRun(ctx, run); err != nil {
		logger.Warn("failed to record match run start", "run_id", run.ID, "error", err)
	}

	result := &RunResult{RunID: run.ID, DryRun: req.DryRun, CreatedIDs: make([]int64, 0)}

	docs, err := s.store.ListDocuments(ctx, storage.DocumentFilters{
		CompanyID:     req.CompanyID,
		UnmatchedOnly: !req.Rematch,
	})
	if err != nil {
		err = fmt.Errorf("failed to list documents: %w", err)
		return s.finish(logger, run, result, err)
	}

	logger.Info("starting match run",
		"run_id", run.ID,
		"documents", len(docs),
		"accept_threshold", threshold,
		"dry_run", req.DryRun)

	report, err := s.selector.ProposeMatches(ctx, req.CompanyID, docs, SelectOptions{
		AcceptThreshold: threshold,
		Progress:        req.Progress,
	})
	result.Report = report
	if err != nil {
		return s.finish(logger, run, result, err)
	}

	if !req.DryRun {
		for _, p := range report.Proposals {
			if err := ctx.Err(); err != nil {
				return s.finish(logger, run, result, err)
			}

			confidence := p.Confidence
			id, created, err := s.store.CreateMatch(ctx, ledger.NewMatch{
				DocumentID:    p.DocumentID,
				TransactionID: p.TransactionID,
				Confidence:    &confidence,
				MatchType:     matchType,
				MatchedBy:     matchedBy,
			})
			if err != nil {
				logger.Error("failed to record match",
					"document_id", p.DocumentID,
					"transaction_id", p.TransactionID,
					"error", err)
				err = fmt.Errorf("failed to record match for document %d and transaction %d: %w",
					p.DocumentID, p.TransactionID, err)
				return s.finish(logger, run, result, err)
			}
			if !created {
				// Another writer got there first
				logger.Info("match already recorded",
					"match_id", id,
					"document_id", p.DocumentID,
					"transaction_id", p.TransactionID)
				result.Duplicates++
				continue
			}
			result.Created++
			result.CreatedIDs = append(result.CreatedIDs, id)
		}

		if err := s.store.MarkMatchAttempted(ctx, report.Scored, s.now()); err != nil {
			logger.Warn("failed to stamp scored documents", "error", err)
			run.Errors++
		}
	}

	return s.finish(logger, run, result, nil)
}

// finish records the run outcome and returns the result with runErr
func (s *Service) finish(logger *slog.Logger, run *storage.MatchRun, result *RunResult, runErr error) (*RunResult, error) {
	if report := result.Report; report != nil {
		run.DocumentsFound = report.DocumentsFound
		run.Skipped = len(report.Skipped)
		run.Proposed = len(report.Proposals)
		run.NearMisses = len(report.NearMisses)
		run.Unmatched = len(report.Unmatched)
	}
	run.Created = result.Created
	run.Duplicates = result.Duplicates
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	run.Finish(s.now().UTC())
	result.Status = run.Status

	// The request context may be done already; the outcome is still recorded
	if err := s.store.CompleteMatchRun(context.Background(), run); err != nil {
		logger.Warn("failed to record match run completion", "run_id", run.ID, "error", err)
	}

	if runErr != nil {
		logger.Error("match run failed",
			"run_id", run.ID,
			"created", run.Created,
			"error", runErr)
		return result, runErr
	}

	logger.Info("match run completed",
		"run_id", run.ID,
		"status", run.Status,
		"documents", run.DocumentsFound,
		"proposed", run.Proposed,
		"created", run.Created,
		"duplicates", run.Duplicates,
		"skipped", run.Skipped,
		"near_misses", run.NearMisses,
		"unmatched", run.Unmatched)
	return result, nil
}

// lockCompany waits for the company's run slot. The returned func releases it.
func (s *Service) lockCompany(ctx context.Context, companyID int64) (func(), error) {
	s.locksMutex.Lock()
	slot, ok := s.companyLocks[companyID]
	if !ok {
		slot = make(chan struct{}, 1)
		s.companyLocks[companyID] = slot
	}
	s.locksMutex.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for company %d run: %w", companyID, ctx.Err())
	}
}
