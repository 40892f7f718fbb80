package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/openvera/internal/domain/ledger"
)

func matchesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Inspect and edit the match ledger",
	}
	cmd.AddCommand(matchesListCmd(a), matchesRemoveCmd(a))
	return cmd
}

func matchesListCmd(a *app) *cobra.Command {
	var (
		companyID     int64
		documentID    int64
		transactionID int64
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var matches []*ledger.Match
			switch {
			case transactionID > 0:
				matches, err = store.ListMatchesForTransaction(ctx, transactionID)
			case documentID > 0:
				matches, err = store.ListMatchesForDocument(ctx, documentID)
			case companyID > 0:
				matches, err = store.ListMatchesForCompany(ctx, companyID)
			default:
				return errors.New("one of --company, --document or --transaction is required")
			}
			if err != nil {
				return err
			}

			if asJSON {
				if matches == nil {
					matches = []*ledger.Match{}
				}
				return printJSON(cmd.OutOrStdout(), matches)
			}
			PrintMatches(cmd.OutOrStdout(), matches)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&companyID, "company", 0, "list matches of a company")
	flags.Int64Var(&documentID, "document", 0, "list matches of a document")
	flags.Int64Var(&transactionID, "transaction", 0, "list matches of a transaction")
	flags.BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func matchesRemoveCmd(a *app) *cobra.Command {
	var documentID, transactionID int64

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a recorded match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			removed, err := store.RemoveMatch(ctx, documentID, transactionID)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no match between document %d and transaction %d", documentID, transactionID)
			}

			a.system("ledger").Info("match removed",
				"document_id", documentID,
				"transaction_id", transactionID)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed match between document %d and transaction %d.\n", documentID, transactionID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&documentID, "document", 0, "document of the pair (required)")
	flags.Int64Var(&transactionID, "transaction", 0, "transaction of the pair (required)")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("transaction")
	return cmd
}
