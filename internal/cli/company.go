package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/openvera/internal/api/dto"
	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

func companyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Manage companies",
	}

	var company storage.Company
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if company.Name == "" {
				company.Name = company.Slug
			}

			store, err := openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.CreateCompany(ctx, &company); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Company %d: %s\n", company.ID, company.Name)
			return nil
		},
	}
	add.Flags().StringVar(&company.Slug, "slug", "", "short unique name (required)")
	add.Flags().StringVar(&company.Name, "name", "", "display name (default: slug)")
	add.Flags().StringVar(&company.OrgNumber, "org-number", "", "organisation number")
	_ = add.MarkFlagRequired("slug")

	summary := &cobra.Command{
		Use:   "summary ID",
		Short: "Show reconciliation counts for a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid company id %q", args[0])
			}

			store, err := openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			c, err := store.GetCompany(ctx, id)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("company %d not found", id)
			}
			s, err := store.GetCompanySummary(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.CompanySummaryResponse{Company: c, Summary: s})
		},
	}

	cmd.AddCommand(add, summary)
	return cmd
}

func accountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage bank accounts",
	}

	var account storage.Account
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a bank account for a company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			c, err := store.GetCompany(ctx, account.CompanyID)
			if err != nil {
				return err
			}
			if c == nil {
				return errors.New("company not found")
			}
			if account.Name == "" {
				account.Name = account.AccountNumber
			}
			if err := store.CreateAccount(ctx, &account); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %d: %s (%s)\n", account.ID, account.Name, account.Currency)
			return nil
		},
	}
	add.Flags().Int64Var(&account.CompanyID, "company", 0, "owning company (required)")
	add.Flags().StringVar(&account.Name, "name", "", "display name (default: account number)")
	add.Flags().StringVar(&account.AccountNumber, "number", "", "bank account number, used to route imports")
	add.Flags().StringVar(&account.Currency, "currency", "SEK", "account currency")
	_ = add.MarkFlagRequired("company")

	cmd.AddCommand(add)
	return cmd
}
