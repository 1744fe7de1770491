package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
)

// LegalResult lists the legal move templates of a stored game, or the next
// decision of a partial move.
type LegalResult struct {
	GameID       string           `json:"gameId"`
	Seq          int64            `json:"seq"`
	ActivePlayer int              `json:"activePlayer"`
	Moves        []ir.Move        `json:"moves,omitempty"`
	Choice       *kernel.Choice   `json:"choice,omitempty"`
	Terminal     *kernel.Terminal `json:"terminal,omitempty"`
}

// NewLegalCommand creates the legal command.
func NewLegalCommand(rootOpts *RootOptions) *cobra.Command {
	var partial string

	cmd := &cobra.Command{
		Use:   "legal <game-id>",
		Short: "List legal moves of a stored game",
		Long: `List the legal move templates for the active player of a stored game.

With --partial, walk a partial move instead and report the next decision
it needs, or whether it is complete or illegal.

Examples:
  tabula legal 0192f1d4-...
  tabula legal 0192f1d4-... --partial '{"actionId":"pick","params":{}}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLegal(rootOpts, args[0], partial, cmd)
		},
	}
	cmd.Flags().StringVar(&partial, "partial", "", "partial move JSON to probe")
	return cmd
}

func runLegal(opts *RootOptions, gameID, partial string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	mgr, st, err := opts.openManager()
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := mgr.Resume(cmd.Context(), gameID)
	if err != nil {
		return formatter.Failure(exitCodeFor(err), "cannot resume game", err)
	}
	result := LegalResult{GameID: sess.ID(), Seq: sess.Seq(), ActivePlayer: sess.State().ActivePlayer}

	if partial != "" {
		move, err := parseMove(partial)
		if err != nil {
			return formatter.Failure(ExitCommandError, "cannot parse move", err)
		}
		choice, err := sess.LegalChoices(move)
		if err != nil {
			return formatter.Failure(ExitFailure, "probe failed", err)
		}
		result.Choice = &choice
	} else {
		moves, err := sess.LegalMoves()
		if err != nil {
			return formatter.Failure(ExitFailure, "legal move enumeration failed", err)
		}
		result.Moves = moves
		if result.Terminal, err = sess.Terminal(); err != nil {
			return formatter.Failure(ExitFailure, "terminal check failed", err)
		}
	}
	return formatter.Success(result, func(w io.Writer) { renderLegal(w, result) })
}

func renderLegal(w io.Writer, r LegalResult) {
	if c := r.Choice; c != nil {
		switch c.Kind {
		case kernel.ChoicePending:
			fmt.Fprintf(w, "Pending %s %q (%s), choose %d..%d of:\n", c.DecisionID, c.Name, c.Type, c.Min, c.Max)
			for _, opt := range c.Options {
				fmt.Fprintf(w, "  %s\n", ir.ValueKey(opt))
			}
		case kernel.ChoiceIllegal:
			fmt.Fprintf(w, "Illegal: %s\n", c.Reason)
		default:
			fmt.Fprintln(w, "Complete")
		}
		return
	}
	if r.Terminal != nil {
		fmt.Fprintf(w, "Game %s is over: %s\n", r.GameID, describeTerminal(r.Terminal))
		return
	}
	fmt.Fprintf(w, "Game %s, seq %d, player %d to move: %d legal moves\n", r.GameID, r.Seq, r.ActivePlayer, len(r.Moves))
	for _, m := range r.Moves {
		fmt.Fprintf(w, "  %s\n", m.Key())
	}
}
