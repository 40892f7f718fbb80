package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Header aliases, most specific first. Matching is case-insensitive on a
// substring of the column name, since bank exports vary in wording and
// encoding.
var (
	dateColumns      = []string{"bokföringsdag", "bokforingsdag", "transaktionsdatum", "datum", "date"}
	amountColumns    = []string{"insättning", "insattning", "uttag", "belopp", "amount"}
	balanceColumns   = []string{"bokfört saldo", "bokfort saldo", "saldo", "balance"}
	referenceColumns = []string{"referens", "text", "meddelande", "reference", "description"}
	accountColumns   = []string{"kontonr", "kontonummer", "account"}
)

var csvDateLayouts = []string{"2006-01-02", "2006/01/02", "20060102", "02.01.2006"}

// ParseCSV parses a bank CSV export. Handles a leading "sep=" line, a UTF-8
// BOM, Windows-1252 encoded files and Swedish number formatting. Lines
// before the header and lines without a date or amount are ignored.
func ParseCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		if data, err = charmap.Windows1252.NewDecoder().Bytes(data); err != nil {
			return nil, fmt.Errorf("failed to decode: %w", err)
		}
	}

	text := string(data)
	delimiter := ';'
	lineOffset := 0
	if strings.HasPrefix(text, "sep=") {
		line, rest, _ := strings.Cut(text, "\n")
		if sep := strings.TrimSpace(strings.TrimPrefix(line, "sep=")); sep != "" {
			delimiter, _ = utf8.DecodeRuneInString(sep)
		}
		text = rest
		lineOffset = 1
	} else if first, _, _ := strings.Cut(text, "\n"); !strings.Contains(first, ";") && strings.Contains(first, ",") {
		delimiter = ','
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var cols *csvColumns
	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		line += lineOffset

		if cols == nil {
			cols = findColumns(record)
			continue
		}

		row, ok, err := cols.parse(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			row.Line = line
			rows = append(rows, row)
		}
	}

	if cols == nil {
		return nil, errors.New("no header with date and amount columns found")
	}
	return rows, nil
}

// csvColumns holds column indexes; -1 means absent
type csvColumns struct {
	date, amount, balance, reference, account int
}

// findColumns returns the column layout if record is a header row
func findColumns(record []string) *csvColumns {
	cols := &csvColumns{
		date:      columnIndex(record, dateColumns),
		amount:    columnIndex(record, amountColumns),
		balance:   columnIndex(record, balanceColumns),
		reference: columnIndex(record, referenceColumns),
		account:   columnIndex(record, accountColumns),
	}
	if cols.date < 0 || cols.amount < 0 {
		return nil
	}
	if cols.balance == cols.amount {
		cols.balance = -1
	}
	return cols
}

func columnIndex(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, name := range header {
			if strings.Contains(strings.ToLower(strings.TrimSpace(name)), alias) {
				return i
			}
		}
	}
	return -1
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parse converts a data record. ok is false for rows to skip, such as
// summary lines without a date.
func (c *csvColumns) parse(record []string) (Row, bool, error) {
	dateStr := field(record, c.date)
	amountStr := field(record, c.amount)
	if dateStr == "" || amountStr == "" {
		return Row{}, false, nil
	}

	date, err := parseCSVDate(dateStr)
	if err != nil {
		return Row{}, false, err
	}
	amount, err := ParseAmount(amountStr)
	if err != nil {
		return Row{}, false, err
	}

	row := Row{
		AccountNumber: field(record, c.account),
		Date:          date,
		Amount:        amount,
		Reference:     field(record, c.reference),
	}
	// Unparseable balances ("*" on pending rows) are left out
	if b := field(record, c.balance); b != "" {
		if balance, err := ParseAmount(b); err == nil {
			row.Balance = decimal.NewNullDecimal(balance)
		}
	}
	return row, true, nil
}

func parseCSVDate(s string) (time.Time, error) {
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ParseAmount parses Swedish and plain decimal notation: "-1 234,56",
// "1.234,56", "-584.00". Spaces, non-breaking spaces and a Unicode minus
// are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u2009', '\u202f', '\'':
			return -1
		case '\u2212':
			return '-'
		}
		return r
	}, strings.TrimSpace(s))
	cleaned = strings.TrimSuffix(strings.TrimSuffix(cleaned, "kr"), "SEK")

	if strings.Contains(cleaned, ",") {
		// Comma is the decimal separator; dots group thousands
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}
