package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/ir"
	"github.com/roach88/tabula/internal/kernel"
)

// MoveResult reports one applied move.
type MoveResult struct {
	GameID     string           `json:"gameId"`
	Seq        int64            `json:"seq"`
	Move       ir.Move          `json:"move"`
	StateHash  ir.Hex64         `json:"stateHash"`
	Triggers   []string         `json:"triggers,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
	Degenerate bool             `json:"degenerate,omitempty"`
	Terminal   *kernel.Terminal `json:"terminal,omitempty"`
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <game-id> <move-json>",
		Short: "Apply one move to a stored game",
		Long: `Resume a stored game, apply one complete move and append it to the log.

The move is a JSON object: {"actionId": "...", "params": {...}}, with
optional "freeOperation" and "compound" fields. Decisions met by the
effects are answered in params under their decision ids; use
"tabula legal --partial" to discover them.

Exit codes:
  0 - Move applied
  1 - Move rejected (ILLEGAL_MOVE or another kernel error)
  2 - Command error (unknown game, malformed move JSON)

Example:
  tabula move 0192f1d4-... '{"actionId":"advance","params":{"$steps":2}}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runMove(opts *RootOptions, gameID, moveJSON string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	move, err := parseMove(moveJSON)
	if err != nil {
		return formatter.Failure(ExitCommandError, "cannot parse move", err)
	}

	mgr, st, err := opts.openManager()
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := mgr.Resume(ctx, gameID)
	if err != nil {
		return formatter.Failure(exitCodeFor(err), "cannot resume game", err)
	}
	res, err := sess.Apply(ctx, move)
	if err != nil {
		return formatter.Failure(exitCodeFor(err), fmt.Sprintf("move %s rejected", move.ActionID), err)
	}
	term, err := sess.Terminal()
	if err != nil {
		return formatter.Failure(ExitFailure, "terminal check failed", err)
	}

	result := MoveResult{
		GameID:     sess.ID(),
		Seq:        sess.Seq(),
		Move:       move,
		StateHash:  res.State.StateHash,
		Warnings:   res.Warnings,
		Degenerate: res.Degenerate,
		Terminal:   term,
	}
	for _, e := range res.TriggerLog {
		result.Triggers = append(result.Triggers, e.TriggerID)
	}
	return formatter.Success(result, func(w io.Writer) { renderMove(w, result) })
}

// parseMove decodes a move. Params must be float-free.
func parseMove(s string) (ir.Move, error) {
	var m ir.Move
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return ir.Move{}, fmt.Errorf("%w: %v", errMalformedMove, err)
	}
	if m.ActionID == "" {
		return ir.Move{}, fmt.Errorf("%w: no actionId", errMalformedMove)
	}
	if m.Params == nil {
		m.Params = ir.Object{}
	}
	return m, nil
}

func renderMove(w io.Writer, r MoveResult) {
	fmt.Fprintf(w, "Applied %s as seq %d, state %s\n", r.Move.Key(), r.Seq, r.StateHash)
	for _, id := range r.Triggers {
		fmt.Fprintf(w, "  trigger %s\n", id)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	if r.Terminal != nil {
		fmt.Fprintf(w, "Game over: %s\n", describeTerminal(r.Terminal))
	}
}
