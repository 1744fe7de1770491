package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula/internal/store"
)

// GameSummary is one row of the games listing.
type GameSummary struct {
	ID          string `json:"id"`
	DefID       string `json:"defId"`
	Seed        int64  `json:"seed"`
	PlayerCount int    `json:"playerCount"`
	Moves       int64  `json:"moves"`
	CreatedAt   string `json:"createdAt"`
}

// NewGamesCommand creates the games command.
func NewGamesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List stored games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGames(rootOpts, cmd)
		},
	}
}

func runGames(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	games, err := st.ListGames(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list games", err)
	}
	rows := make([]GameSummary, 0, len(games))
	for _, g := range games {
		seq, err := st.LastSeq(ctx, g.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read move log", err)
		}
		rows = append(rows, GameSummary{
			ID:          g.ID,
			DefID:       g.DefID,
			Seed:        g.Seed,
			PlayerCount: g.PlayerCount,
			Moves:       seq,
			CreatedAt:   g.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return formatter.Success(rows, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, "No games found.")
			return
		}
		for _, r := range rows {
			fmt.Fprintf(w, "%s  %s  seed=%d players=%d moves=%d\n", r.ID, r.DefID, r.Seed, r.PlayerCount, r.Moves)
		}
	})
}
