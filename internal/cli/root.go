// Package cli implements the wikichain command line.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/wikichain/internal/config"
	"github.com/roach88/wikichain/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	Config    string // optional YAML config file
	Database  string // SQLite file or badger directory
	Backend   string // "sqlite" | "badger"
	Agent     string // submitting agent id
	LogFormat string // "text" | "json" | "pretty"

	// Logger is set by the root command before any subcommand runs.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidLogFormats defines the allowed log handler formats.
var ValidLogFormats = []string{"text", "json", "pretty"}

// ValidBackends defines the allowed store backends.
var ValidBackends = []string{config.BackendSQLite, config.BackendBadger}

// NewRootCommand creates the root command for the wikichain CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "wikichain",
		Version: ir.Version,
		Short:   "wikichain - append-only wiki pages with author locks",
		Long: `wikichain stores wiki pages in an append-only, content-addressed chain.

Every edit is a new page linked to the one it supersedes. A page created
with permission AuthorOnly may only be superseded by its author; a page
created with permission Others may be superseded by anyone. The rule is
always read from the page being superseded, never from the edit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Config, "config", "", "path to YAML config file")
	flags.StringVar(&opts.Database, "db", "", "database path (default from config: wikichain.db)")
	flags.StringVar(&opts.Backend, "backend", "", "store backend (sqlite|badger)")
	flags.StringVar(&opts.Agent, "agent", "", "agent id submitting records")
	flags.StringVar(&opts.LogFormat, "log-format", "", "log format (text|json|pretty)")

	// Add subcommands
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewAgentCommand(opts))

	return cmd
}

// setup validates global flags, merges the config file underneath them and
// builds the logger.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	// Flags win over the file.
	if o.Database == "" {
		o.Database = cfg.Database
	}
	if o.Backend == "" {
		o.Backend = cfg.Backend
	}
	if o.Agent == "" {
		o.Agent = cfg.Agent
	}
	if o.LogFormat == "" {
		o.LogFormat = cfg.Log.Format
	}

	if !slices.Contains(ValidBackends, o.Backend) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid backend %q: must be one of %v", o.Backend, ValidBackends))
	}

	level := cfg.Log.SlogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger, err := newLogger(cmd.ErrOrStderr(), o.LogFormat, level)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log format", err)
	}
	o.Logger = logger
	return nil
}

// logger returns the configured logger, or slog.Default() when the command
// was built without the root command.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
