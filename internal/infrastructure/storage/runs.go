package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const runColumns = `id, company_id, accept_threshold, dry_run, rematch, started_at, completed_at,
	documents_found, documents_skipped, proposed, created, duplicates, near_misses, unmatched,
	errors, status, error_message`

// StartMatchRun records the start of a run
func (s *Storage) StartMatchRun(ctx context.Context, run *MatchRun) error {
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_runs (id, company_id, accept_threshold, dry_run, rematch, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CompanyID, run.AcceptThreshold, run.DryRun, run.Rematch, run.StartedAt.UTC(), run.Status)
	if err != nil {
		return fmt.Errorf("failed to start match run: %w", err)
	}
	return nil
}

// CompleteMatchRun stores the run's counts and final status
func (s *Storage) CompleteMatchRun(ctx context.Context, run *MatchRun) error {
	var completedAt sql.NullTime
	if run.CompletedAt != nil {
		completedAt = sql.NullTime{Time: run.CompletedAt.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE match_runs
		SET completed_at = ?,
		    documents_found = ?,
		    documents_skipped = ?,
		    proposed = ?,
		    created = ?,
		    duplicates = ?,
		    near_misses = ?,
		    unmatched = ?,
		    errors = ?,
		    status = ?,
		    error_message = ?
		WHERE id = ?
	`,
		completedAt,
		run.DocumentsFound,
		run.Skipped,
		run.Proposed,
		run.Created,
		run.Duplicates,
		run.NearMisses,
		run.Unmatched,
		run.Errors,
		run.Status,
		nullString(run.ErrorMessage),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete match run %s: %w", run.ID, err)
	}
	return nil
}

// GetMatchRun retrieves a run by ID
func (s *Storage) GetMatchRun(ctx context.Context, id string) (*MatchRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM match_runs WHERE id = ?`, id)
	run, err := scanMatchRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match run %s: %w", id, err)
	}
	return run, nil
}

// ListMatchRuns returns recent runs, newest first. companyID 0 means all.
func (s *Storage) ListMatchRuns(ctx context.Context, companyID int64, limit int) ([]*MatchRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM match_runs`
	args := []any{}
	if companyID > 0 {
		query += ` WHERE company_id = ?`
		args = append(args, companyID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list match runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*MatchRun, 0)
	for rows.Next() {
		run, err := scanMatchRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanMatchRun(row rowScanner) (*MatchRun, error) {
	var run MatchRun
	var completedAt sql.NullTime
	var errorMessage sql.NullString

	err := row.Scan(
		&run.ID,
		&run.CompanyID,
		&run.AcceptThreshold,
		&run.DryRun,
		&run.Rematch,
		&run.StartedAt,
		&completedAt,
		&run.DocumentsFound,
		&run.Skipped,
		&run.Proposed,
		&run.Created,
		&run.Duplicates,
		&run.NearMisses,
		&run.Unmatched,
		&run.Errors,
		&run.Status,
		&errorMessage,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.ErrorMessage = errorMessage.String
	return &run, nil
}
