package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/openvera/internal/importer"
)

func importCmd(a *app) *cobra.Command {
	var (
		accountID int64
		format    string
		apply     bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a bank statement (CSV or OFX)",
		Long: `Reads a bank statement export and adds its rows to an account.
Rows seen before are skipped, so the same file can be imported twice.
Without --apply the import only reports what it would do.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			opts := importer.Options{AccountID: accountID, Apply: apply}
			if format != "" {
				f, err := importer.ParseFormat(format)
				if err != nil {
					return err
				}
				opts.Format = f
			}

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = file.Close() }()

			store, err := openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result, err := newImporter(a, store).Import(ctx, filepath.Base(args[0]), file, opts)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}

			if asJSON {
				return printJSON(out, result)
			}
			PrintHeader(out, "import", !apply)
			PrintImportResult(out, result)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&accountID, "account", 0, "target account (default: the account number in the file)")
	flags.StringVar(&format, "format", "", "statement format: csv or ofx (default: detect)")
	flags.BoolVar(&apply, "apply", false, "write the rows")
	flags.BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
