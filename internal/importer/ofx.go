package importer

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagPattern  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes formatting issues banks commonly ship
func preprocessOFX(content string) string {
	content = strings.TrimLeft(strings.TrimPrefix(content, "\ufeff"), " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	// SGML tags missing their closing bracket at end of line
	return openTagPattern.ReplaceAllString(content, "$1>")
}

// ParseOFX parses bank and credit card statements from an OFX/QFX file.
// Rows carry the bank's FITID as ExternalID.
func ParseOFX(r io.Reader) ([]Row, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			if rows, err = appendOFXRows(rows, string(stmt.BankAcctFrom.AcctID), stmt.BankTranList.Transactions); err != nil {
				return nil, err
			}
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			if rows, err = appendOFXRows(rows, string(stmt.CCAcctFrom.AcctID), stmt.BankTranList.Transactions); err != nil {
				return nil, err
			}
		}
	}

	for i := range rows {
		rows[i].Line = i + 1
	}
	return rows, nil
}

func appendOFXRows(rows []Row, accountNumber string, txns []ofxgo.Transaction) ([]Row, error) {
	for _, t := range txns {
		amount, err := decimal.NewFromString(t.TrnAmt.FloatString(2))
		if err != nil {
			return nil, fmt.Errorf("transaction %s: invalid amount: %w", t.FiTID, err)
		}
		rows = append(rows, Row{
			AccountNumber: accountNumber,
			Date:          postedDate(t.DtPosted.Time),
			Amount:        amount,
			Reference:     ofxReference(t),
			ExternalID:    string(t.FiTID),
		})
	}
	return rows, nil
}

// postedDate keeps the calendar day the bank reported, at UTC midnight
func postedDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ofxReference(t ofxgo.Transaction) string {
	name := strings.TrimSpace(string(t.Name))
	if name == "" && t.Payee != nil {
		name = strings.TrimSpace(string(t.Payee.Name))
	}
	if name == "" {
		name = strings.TrimSpace(string(t.Memo))
	}
	return name
}
