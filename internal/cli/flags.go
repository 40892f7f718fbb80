package cli

import (
	"github.com/spf13/cobra"

	"github.com/eshaffer321/openvera/internal/application/matching"
	"github.com/eshaffer321/openvera/internal/domain/ledger"
)

// MatchFlags are the flags of the match command
type MatchFlags struct {
	CompanyID int64
	Threshold int
	DryRun    bool
	Rematch   bool
	MatchType string
	Progress  bool
	JSON      bool

	thresholdSet bool
}

// register adds the flags to cmd
func (f *MatchFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int64Var(&f.CompanyID, "company", 0, "company to match (required)")
	flags.IntVar(&f.Threshold, "threshold", matching.DefaultAcceptThreshold, "minimum confidence (0-100) to record a match")
	flags.BoolVar(&f.DryRun, "dry-run", false, "report proposals without recording them")
	flags.BoolVar(&f.Rematch, "rematch", false, "include documents that already have matches")
	flags.StringVar(&f.MatchType, "type", string(ledger.MatchTypeAuto), "match type to record (auto, suggested, approved)")
	flags.BoolVar(&f.Progress, "progress", false, "show a progress bar")
	flags.BoolVar(&f.JSON, "json", false, "print the run result as JSON")
	_ = cmd.MarkFlagRequired("company")
}

// ToRunRequest converts MatchFlags to a matching.RunRequest. The threshold
// is only passed on when the flag was given so the configured default holds.
func (f *MatchFlags) ToRunRequest() matching.RunRequest {
	req := matching.RunRequest{
		CompanyID: f.CompanyID,
		DryRun:    f.DryRun,
		Rematch:   f.Rematch,
		MatchType: ledger.MatchType(f.MatchType),
		MatchedBy: ledger.MatchedBySystem,
	}
	if f.thresholdSet {
		threshold := f.Threshold
		req.AcceptThreshold = &threshold
	}
	return req
}
