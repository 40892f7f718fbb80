package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/eshaffer321/openvera/internal/application/matching"
	"github.com/eshaffer321/openvera/internal/domain/ledger"
	"github.com/eshaffer321/openvera/internal/importer"
)

// PrintHeader prints the command header
func PrintHeader(w io.Writer, what string, dryRun bool) {
	mode := "APPLY"
	if dryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(w, "openvera: %s (%s mode)\n", what, mode)
}

// PrintRunSummary prints the outcome of a match run
func PrintRunSummary(w io.Writer, result *matching.RunResult) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Run %s: %s\n", result.RunID, result.Status)

	report := result.Report
	if report == nil {
		return
	}
	fmt.Fprintf(w, "Summary: Documents=%d Proposed=%d Created=%d Duplicates=%d Skipped=%d NearMisses=%d Unmatched=%d\n",
		report.DocumentsFound,
		len(report.Proposals),
		result.Created,
		result.Duplicates,
		len(report.Skipped),
		len(report.NearMisses),
		len(report.Unmatched))

	if len(report.Proposals) > 0 {
		fmt.Fprintln(w, "\nProposals:")
		printProposals(w, report.Proposals)
	}
	if len(report.NearMisses) > 0 {
		fmt.Fprintln(w, "\nNear misses (below threshold):")
		printProposals(w, report.NearMisses)
	}

	if result.DryRun && len(report.Proposals) > 0 {
		fmt.Fprintln(w, "\nDry run: nothing was recorded. Re-run without --dry-run to apply.")
	}
}

func printProposals(w io.Writer, proposals []matching.Proposal) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  DOCUMENT\tTRANSACTION\tCONFIDENCE\tDAYS\tPARTY")
	for _, p := range proposals {
		party := ""
		if p.PartyMatched {
			party = "yes"
		}
		fmt.Fprintf(tw, "  %d\t%d\t%d\t%d\t%s\n", p.DocumentID, p.TransactionID, p.Confidence, p.DateDiffDays, party)
	}
	_ = tw.Flush()
}

// PrintImportResult prints the outcome of a statement import
func PrintImportResult(w io.Writer, result *importer.Result) {
	fmt.Fprintf(w, "%s (%s) -> account %d\n", result.File, result.Format, result.AccountID)
	fmt.Fprintf(w, "Rows=%d New=%d Duplicates=%d\n", result.Rows, result.Imported, result.Duplicates)
	if result.DryRun && result.Imported > 0 {
		fmt.Fprintln(w, "Dry run: nothing was written. Re-run with --apply to import.")
	}
}

// PrintMatches prints ledger entries as a table
func PrintMatches(w io.Writer, matches []*ledger.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDOCUMENT\tTRANSACTION\tCONFIDENCE\tTYPE\tBY\tCREATED")
	for _, m := range matches {
		confidence := "-"
		if m.Confidence != nil {
			confidence = fmt.Sprint(*m.Confidence)
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
			m.ID, m.DocumentID, m.TransactionID, confidence, m.MatchType, m.MatchedBy,
			m.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
