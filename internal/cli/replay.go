package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/compiler"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/session"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	GameFile string // optional - replay against this definition instead of the stored one
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Games            []*session.ReplayReport `json:"games"`
	TotalGames       int                     `json:"total_games"`
	AllDeterministic bool                    `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [game-id]...",
		Short: "Replay stored games and verify determinism",
		Long: `Replay stored games from their seeds and compare every state hash with
the recorded one. Without game ids, every stored game is replayed.

With --game, the replay runs against the given definition instead of the
stored one, which shows whether a rules change alters recorded games.

Exit codes:
  0 - Every game replayed to its recorded hashes
  1 - Divergence detected
  2 - Command error (database not found, unknown game, etc.)

Examples:
  tabula replay --db ./tabula.db
  tabula replay 0192f1d4-... --game games/race-v2.json --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.GameFile, "game", "", "replay against this game definition")

	return cmd
}

func runReplay(opts *ReplayOptions, gameIDs []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	var def *ir.GameDef
	if opts.GameFile != "" {
		var err error
		if def, err = compiler.LoadGameDef(opts.GameFile); err != nil {
			return formatter.Failure(exitCodeFor(err), "cannot load game definition", err)
		}
	}

	mgr, st, err := opts.openManager()
	if err != nil {
		return err
	}
	defer st.Close()

	if len(gameIDs) == 0 {
		games, err := st.ListGames(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list games", err)
		}
		for _, g := range games {
			gameIDs = append(gameIDs, g.ID)
		}
	}

	result := ReplayResult{Games: []*session.ReplayReport{}, AllDeterministic: true}
	for _, id := range gameIDs {
		report, err := mgr.Replay(ctx, id, def)
		if err != nil {
			return formatter.Failure(exitCodeFor(err), fmt.Sprintf("cannot replay %s", id), err)
		}
		formatter.VerboseLog("%s: %d moves verified", id, report.Verified)
		result.Games = append(result.Games, report)
		if !report.OK() {
			result.AllDeterministic = false
		}
	}
	result.TotalGames = len(result.Games)

	if err := formatter.Success(result, func(w io.Writer) { renderReplay(w, result) }); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged")
	}
	return nil
}

func renderReplay(w io.Writer, result ReplayResult) {
	if result.TotalGames == 0 {
		fmt.Fprintln(w, "No games found.")
		return
	}
	for _, r := range result.Games {
		changed := ""
		if r.DefChanged {
			changed = " [definition replaced]"
		}
		if r.OK() {
			fmt.Fprintf(w, "✓ %s: %d moves, final %s%s\n", r.GameID, r.Verified, r.FinalHash, changed)
		} else {
			fmt.Fprintf(w, "✗ %s: diverged at %s%s\n", r.GameID, r.Divergence.Error(), changed)
		}
		if r.Terminal != nil {
			fmt.Fprintf(w, "  result: %s\n", describeTerminal(r.Terminal))
		}
	}
	fmt.Fprintf(w, "\nReplay Summary: %d games, deterministic: %t\n", result.TotalGames, result.AllDeterministic)
}
