// Package cli implements the openvera command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eshaffer321/openvera/internal/infrastructure/config"
	"github.com/eshaffer321/openvera/internal/infrastructure/logging"
)

// app carries what every command needs once flags are parsed
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the openvera command tree
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "openvera",
		Short: "Reconcile invoices and receipts against bank transactions",
		Long: `openvera matches bookkeeping documents (invoices, receipts) to the bank
transactions that paid them and keeps the resulting pairs in a match ledger.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default: config.yaml if present)")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (console, json)")

	_ = a.v.BindPFlag("config", flags.Lookup("config"))
	_ = a.v.BindPFlag("storage.database_path", flags.Lookup("db"))
	_ = a.v.BindPFlag("observability.logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("observability.logging.format", flags.Lookup("log-format"))

	root.AddCommand(
		serveCmd(a),
		matchCmd(a),
		migrateCmd(a),
		importCmd(a),
		matchesCmd(a),
		companyCmd(a),
		accountCmd(a),
	)

	return root
}

// Execute runs the command line with ctx
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// setup loads configuration in order: .env, config file or environment,
// then flags and OPENVERA_* variables bound through viper
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	a.v.SetEnvPrefix("OPENVERA")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	path := a.v.GetString("config")
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		a.cfg = cfg
	} else {
		a.cfg = config.LoadOrEnv("config.yaml")
	}
	a.applyOverrides()

	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.logger = logging.NewLoggerTo(cmd.ErrOrStderr(), a.cfg.Observability.Logging)
	slog.SetDefault(a.logger)
	return nil
}

// applyOverrides copies explicitly set viper keys over the loaded config
func (a *app) applyOverrides() {
	if a.v.IsSet("storage.database_path") {
		a.cfg.Storage.DatabasePath = a.v.GetString("storage.database_path")
	}
	if a.v.IsSet("server.port") {
		a.cfg.Server.Port = a.v.GetInt("server.port")
	}
	if a.v.IsSet("matching.accept_threshold") {
		a.cfg.Matching.AcceptThreshold = a.v.GetInt("matching.accept_threshold")
	}
	if a.v.IsSet("observability.logging.level") {
		a.cfg.Observability.Logging.Level = a.v.GetString("observability.logging.level")
	}
	if a.v.IsSet("observability.logging.format") {
		a.cfg.Observability.Logging.Format = a.v.GetString("observability.logging.format")
	}
}

// system returns a logger tagged with the subsystem name
func (a *app) system(name string) *slog.Logger {
	return a.logger.With(logging.SystemKey, name)
}
