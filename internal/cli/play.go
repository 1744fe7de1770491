package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/agent"
	"github.com/roach88/tabula/internal/compiler"
	"github.com/roach88/tabula/internal/fault"
	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
	"github.com/roach88/tabula/internal/session"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Seed      int64
	Players   int
	AgentSeed int64
	MaxMoves  int
	Resume    string
}

// PlayResult summarizes a played game.
type PlayResult struct {
	GameID    string           `json:"gameId"`
	Moves     int              `json:"moves"`
	Seq       int64            `json:"seq"`
	StateHash ir.Hex64         `json:"stateHash"`
	Terminal  *kernel.Terminal `json:"terminal,omitempty"`
	Stalled   bool             `json:"stalled,omitempty"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play [game-file]",
		Short: "Play a game with random agents",
		Long: `Start a game from a definition file, or resume a stored one, and let
seeded random agents play it. Every move is stored in the database.

Agent p uses seed agent-seed+p, so a run is reproducible from its flags.

Examples:
  tabula play games/race.json --seed 7 --players 2
  tabula play --resume 0192f1d4-... --max-moves 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runPlay(opts, path, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "game RNG seed")
	cmd.Flags().IntVar(&opts.Players, "players", 2, "number of players")
	cmd.Flags().Int64Var(&opts.AgentSeed, "agent-seed", 1, "base seed of the random agents")
	cmd.Flags().IntVar(&opts.MaxMoves, "max-moves", 1000, "stop after this many moves")
	cmd.Flags().StringVar(&opts.Resume, "resume", "", "resume a stored game by id")

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if (path == "") == (opts.Resume == "") {
		return NewExitError(ExitCommandError, "give either a game file or --resume <game-id>")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mgr, st, err := opts.openManager()
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := openSession(ctx, mgr, path, opts)
	if err != nil {
		return formatter.Failure(exitCodeFor(err), "cannot open game", err)
	}
	formatter.VerboseLog("game %s at seq %d", sess.ID(), sess.Seq())

	agents := make([]agent.Agent, sess.State().PlayerCount)
	for p := range agents {
		agents[p] = agent.NewRandom(opts.AgentSeed+int64(p), opts.kernelOptions()...)
	}
	out, err := agent.Play(ctx, sess, agents, opts.MaxMoves)
	if err != nil && !errors.Is(err, context.Canceled) {
		return formatter.Failure(ExitFailure, fmt.Sprintf("game %s stopped at seq %d", sess.ID(), sess.Seq()), err)
	}

	result := PlayResult{
		GameID:    sess.ID(),
		Moves:     out.Moves,
		Seq:       sess.Seq(),
		StateHash: sess.State().StateHash,
		Terminal:  out.Terminal,
		Stalled:   out.Stalled,
	}
	return formatter.Success(result, func(w io.Writer) { renderPlay(w, result) })
}

func openSession(ctx context.Context, mgr *session.Manager, path string, opts *PlayOptions) (*session.Session, error) {
	if opts.Resume != "" {
		return mgr.Resume(ctx, opts.Resume)
	}
	def, err := compiler.LoadGameDef(path)
	if err != nil {
		return nil, err
	}
	return mgr.Start(ctx, def, opts.Seed, opts.Players)
}

func renderPlay(w io.Writer, r PlayResult) {
	fmt.Fprintf(w, "Game %s: %d moves played, seq %d, state %s\n", r.GameID, r.Moves, r.Seq, r.StateHash)
	switch {
	case r.Terminal != nil:
		fmt.Fprintf(w, "Result: %s\n", describeTerminal(r.Terminal))
	case r.Stalled:
		fmt.Fprintln(w, "Result: stalled, no legal move")
	default:
		fmt.Fprintln(w, "Result: still running")
	}
}

func describeTerminal(t *kernel.Terminal) string {
	if t.Player != nil {
		return fmt.Sprintf("%s by player %d (condition %d)", t.Type, *t.Player, t.Condition)
	}
	return fmt.Sprintf("%s (condition %d)", t.Type, t.Condition)
}

// exitCodeFor separates rejected input from command errors.
func exitCodeFor(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if compiler.IsInputError(err) {
		return ExitFailure
	}
	if errors.Is(err, session.ErrDivergence) || errors.Is(err, session.ErrDefChanged) || errors.Is(err, session.ErrCorruptLog) || errors.Is(err, kernel.ErrPlayerCount) {
		return ExitFailure
	}
	if _, ok := fault.As(err); ok {
		return ExitFailure
	}
	return ExitCommandError
}
