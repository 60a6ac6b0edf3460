package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/nflfeed/internal/aggregator"
	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/report"
	"github.com/pable/nflfeed/internal/storage"
)

var playerColumns string

var playerCmd = &cobra.Command{
	Use:   "player <player-id> [<player-id>...]",
	Short: "Game-by-game stats and totals for players",
	Long: `Prints one row per stored game for each player, followed by the player's
season totals. Player ids are GSIS ids as used by the feed (e.g. 00-0027939).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlayer,
}

func init() {
	playerCmd.Flags().StringVar(&playerColumns, "columns", "", "comma-separated stat columns (default: most common stats)")
}

func runPlayer(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, id := range args {
		if err := printPlayer(db, id, splitList(playerColumns)); err != nil {
			return err
		}
	}
	return nil
}

func printPlayer(db *storage.DB, id string, cols []string) error {
	games, err := db.PlayerGames(id)
	if err != nil {
		return fmt.Errorf("player %s: %w", id, err)
	}
	if len(games) == 0 {
		fmt.Fprintf(os.Stderr, "No stored games for player %s\n", id)
		return nil
	}

	rows := make([]model.ParticipantStats, len(games))
	perGame := make([][]model.ParticipantStats, len(games))
	for i, g := range games {
		row := g.Stats.Clone()
		row.ID = fmt.Sprintf("%s %s@%s", g.Game.GameID, g.Game.Away, g.Game.Home)
		rows[i] = row
		perGame[i] = []model.ParticipantStats{g.Stats}
	}
	total := aggregator.Combine(aggregator.Sum, perGame...)
	if len(total) == 1 {
		t := total[0]
		t.ID = "TOTAL"
		rows = append(rows, t)
	}
	if len(cols) == 0 {
		cols = report.StatColumns(rows)
	}

	fmt.Fprintf(os.Stdout, "\n%s  %s (%s), %d games\n\n", id, games[0].Stats.Name, games[len(games)-1].Stats.Team, len(games))
	report.PrintStats(os.Stdout, rows, cols)
	return nil
}
