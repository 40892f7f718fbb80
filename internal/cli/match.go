package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func matchCmd(a *app) *cobra.Command {
	var flags MatchFlags

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match a company's documents to bank transactions",
		Long: `Scores every unmatched document of the company against its bank
transactions and records every pair that reaches the threshold.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.thresholdSet = cmd.Flags().Changed("threshold")
			return runMatch(cmd, a, &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runMatch(cmd *cobra.Command, a *app, flags *MatchFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	company, err := store.GetCompany(ctx, flags.CompanyID)
	if err != nil {
		return err
	}
	if company == nil {
		return fmt.Errorf("company %d not found", flags.CompanyID)
	}

	req := flags.ToRunRequest()
	if flags.Progress {
		req.Progress = newProgress(cmd.ErrOrStderr(), "Matching documents")
	}

	if !flags.JSON {
		PrintHeader(out, "match "+company.Name, flags.DryRun)
	}

	result, runErr := newMatchingService(a, store).Run(ctx, req)
	if result == nil {
		return runErr
	}

	if flags.JSON {
		if err := printJSON(out, result); err != nil {
			return errors.Join(runErr, err)
		}
	} else {
		PrintRunSummary(out, result)
	}
	return runErr
}

// newProgress returns a progress callback that draws a bar on w. The bar
// is created on the first call, once the total is known.
func newProgress(w io.Writer, description string) func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}
		_ = bar.Set(done)
	}
}
