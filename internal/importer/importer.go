// Package importer loads bank statement files into the transaction store.
//
// Bank CSV exports and OFX/QFX statements are parsed into Rows. Each row
// carries a fingerprint so importing the same file twice adds nothing.
// Imports are previews unless Options.Apply is set.
package importer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

var (
	// ErrUnknownFormat is returned when a file is neither CSV nor OFX
	ErrUnknownFormat = errors.New("unknown statement format")

	// ErrUnknownAccount is returned when no account matches the statement
	ErrUnknownAccount = errors.New("unknown account")
)

// Format is a statement file format
type Format string

const (
	FormatCSV Format = "csv"
	FormatOFX Format = "ofx"
)

// ParseFormat converts a --format value. Empty means auto-detect.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "csv":
		return FormatCSV, nil
	case "ofx", "qfx":
		return FormatOFX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// DetectFormat guesses the format from the file name, then from its first bytes
func DetectFormat(name string, head []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ofx", ".qfx":
		return FormatOFX, nil
	case ".csv":
		return FormatCSV, nil
	}

	trimmed := bytes.TrimSpace(bytes.TrimPrefix(head, utf8BOM))
	upper := bytes.ToUpper(trimmed)
	switch {
	case bytes.HasPrefix(upper, []byte("OFXHEADER")),
		bytes.HasPrefix(upper, []byte("<?XML")) && bytes.Contains(upper, []byte("OFX")),
		bytes.Contains(upper, []byte("<OFX>")):
		return FormatOFX, nil
	case bytes.HasPrefix(trimmed, []byte("sep=")):
		return FormatCSV, nil
	}

	firstLine := trimmed
	if i := bytes.IndexByte(trimmed, '\n'); i >= 0 {
		firstLine = trimmed[:i]
	}
	if bytes.Count(firstLine, []byte(";")) >= 2 || bytes.Count(firstLine, []byte(",")) >= 2 {
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, name)
}

// Row is one parsed statement line
type Row struct {
	Line          int    // Source line or record number, for error messages
	AccountNumber string // Account from the file itself, when present
	Date          time.Time
	Amount        decimal.Decimal
	Balance       decimal.NullDecimal
	Reference     string
	ExternalID    string // Bank-assigned transaction ID (OFX FITID)
}

// String renders a row for previews
func (r Row) String() string {
	return fmt.Sprintf("%s %12s  %s", r.Date.Format("2006-01-02"), r.Amount.StringFixed(2), r.Reference)
}

// Fingerprint identifies a statement line across imports: the first 32 hex
// characters of sha256("date|amount|reference|balance").
func Fingerprint(r Row) string {
	balance := ""
	if r.Balance.Valid {
		balance = r.Balance.Decimal.StringFixed(2)
	}
	raw := fmt.Sprintf("%s|%s|%s|%s",
		r.Date.Format("2006-01-02"),
		r.Amount.StringFixed(2),
		r.Reference,
		balance)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:32]
}

// Store is the part of the repository an import needs
type Store interface {
	GetAccount(ctx context.Context, id int64) (*storage.Account, error)
	FindAccountByNumber(ctx context.Context, number string) (*storage.Account, error)
	ImportTransaction(ctx context.Context, txn *storage.ImportedTransaction) (bool, error)
	HasImportFingerprint(ctx context.Context, accountID int64, fingerprint string) (bool, error)
}

// Options controls one import
type Options struct {
	// AccountID selects the target account. Zero means look the account
	// up by the number found in the file.
	AccountID int64
	// Format overrides detection
	Format Format
	// Apply writes the rows; otherwise the import only reports
	Apply bool
}

// Result summarizes an import
type Result struct {
	File       string `json:"file"`
	Format     Format `json:"format"`
	AccountID  int64  `json:"account_id"`
	Rows       int    `json:"rows"`
	Imported   int    `json:"imported"`
	Duplicates int    `json:"duplicates"`
	DryRun     bool   `json:"dry_run"`
}

// Importer parses statements and stores their rows
type Importer struct {
	store  Store
	logger *slog.Logger
}

// New creates an importer
func New(store Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: store, logger: logger}
}

// Import parses the statement in r and imports its rows. name is used for
// format detection and messages only.
func (i *Importer) Import(ctx context.Context, name string, r io.Reader, opts Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	format := opts.Format
	if format == "" {
		if format, err = DetectFormat(name, head(data, 512)); err != nil {
			return nil, err
		}
	}

	var rows []Row
	switch format {
	case FormatCSV:
		rows, err = ParseCSV(bytes.NewReader(data))
	case FormatOFX:
		rows, err = ParseOFX(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	result := &Result{File: name, Format: format, Rows: len(rows), DryRun: !opts.Apply}
	logger := i.logger.With("file", name, "format", format)
	if len(rows) == 0 {
		logger.Warn("no transactions found")
		return result, nil
	}

	account, err := i.resolveAccount(ctx, opts.AccountID, rows)
	if err != nil {
		return nil, err
	}
	result.AccountID = account.ID
	logger = logger.With("account_id", account.ID)

	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fingerprint := Fingerprint(row)
		if seen[fingerprint] {
			result.Duplicates++
			continue
		}
		seen[fingerprint] = true

		if !opts.Apply {
			exists, err := i.store.HasImportFingerprint(ctx, account.ID, fingerprint)
			if err != nil {
				return result, fmt.Errorf("failed to check line %d: %w", row.Line, err)
			}
			if exists {
				result.Duplicates++
			} else {
				result.Imported++
			}
			continue
		}

		inserted, err := i.store.ImportTransaction(ctx, &storage.ImportedTransaction{
			AccountID:   account.ID,
			Date:        row.Date,
			Amount:      row.Amount,
			Balance:     row.Balance,
			Reference:   row.Reference,
			ExternalID:  row.ExternalID,
			Fingerprint: fingerprint,
		})
		if err != nil {
			return result, fmt.Errorf("failed to import line %d: %w", row.Line, err)
		}
		if inserted {
			result.Imported++
		} else {
			result.Duplicates++
		}
	}

	logger.Info("import finished",
		"rows", result.Rows,
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"dry_run", result.DryRun)
	return result, nil
}

// resolveAccount picks the explicit account or the one named in the file
func (i *Importer) resolveAccount(ctx context.Context, accountID int64, rows []Row) (*storage.Account, error) {
	if accountID > 0 {
		account, err := i.store.GetAccount(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to load account %d: %w", accountID, err)
		}
		if account == nil {
			return nil, fmt.Errorf("%w: id %d", ErrUnknownAccount, accountID)
		}
		return account, nil
	}

	number := ""
	for _, row := range rows {
		if row.AccountNumber != "" {
			number = row.AccountNumber
			break
		}
	}
	if number == "" {
		return nil, fmt.Errorf("%w: the file names no account, pass one explicitly", ErrUnknownAccount)
	}

	account, err := i.store.FindAccountByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account %s: %w", number, err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: number %s", ErrUnknownAccount, number)
	}
	return account, nil
}

func head(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}
