package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eshaffer321/openvera/internal/domain/matcher"
)

// CreateParty inserts a party and sets its ID. Patterns are stored as a JSON array.
func (s *Storage) CreateParty(ctx context.Context, party *matcher.Party) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO parties (name, patterns, default_code) VALUES (?, ?, ?)`,
		party.Name, matcher.FormatPatterns(party.Patterns), nullString(party.DefaultCode),
	)
	if err != nil {
		return fmt.Errorf("failed to create party %q: %w", party.Name, err)
	}
	party.ID, err = result.LastInsertId()
	return err
}

// GetParty retrieves a party by ID
func (s *Storage) GetParty(ctx context.Context, id int64) (*matcher.Party, error) {
	var p matcher.Party
	var patterns string
	var code sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, patterns, default_code FROM parties WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &patterns, &code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party %d: %w", id, err)
	}

	p.Patterns = matcher.ParsePatterns(patterns)
	p.DefaultCode = code.String
	return &p, nil
}
