package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/config"
	"github.com/roach88/tabula/internal/kernel"
	"github.com/roach88/tabula/internal/session"
	"github.com/roach88/tabula/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string // empty: TABULA_DB

	// Config is loaded from the environment before any command runs.
	Config config.Config

	// Session overrides the manager options derived from Config (for testing).
	Session []session.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tabula CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tabula",
		Short: "Deterministic rules kernel for turn-based strategy games",
		Long: `tabula validates declarative game definitions, plays and stores games,
and replays stored games to verify that every recorded state hash is
reproduced exactly.

Settings are read from TABULA_* environment variables (TABULA_DB,
TABULA_LOG_LEVEL, TABULA_SNAPSHOT_EVERY and the kernel budgets such as
TABULA_MAX_EFFECT_OPS).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg
			if opts.DB == "" {
				opts.DB = cfg.DBPath
			}

			level, _ := cfg.Level()
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite database (default $TABULA_DB or tabula.db)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewMoveCommand(opts))
	cmd.AddCommand(NewLegalCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewGamesCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) kernelOptions() []kernel.Option {
	return o.Config.KernelOptions()
}

// openManager opens the game database. The caller closes the store.
func (o *RootOptions) openManager() (*session.Manager, *store.Store, error) {
	st, err := store.Open(o.DB)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	mopts := []session.Option{
		session.WithKernelOptions(o.kernelOptions()...),
		session.WithSnapshotEvery(o.Config.SnapshotEvery),
	}
	mopts = append(mopts, o.Session...)
	return session.NewManager(st, mopts...), st, nil
}
