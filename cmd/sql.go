package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/nflfeed/internal/report"
	"github.com/pable/nflfeed/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the game database",
	Long: `Run an arbitrary SQL query against the game database and print results as a table.

Schema overview:
  games(game_id, home, away, home_score, away_score, season_year, phase, week,
    completed_at, snapshot JSON)
  player_game_stats(game_id, player_id, name, team, position, home, stat, value)

home is 1 for the home team, 2 for the away team. Stats are stored one row per
stat, e.g.:
  SELECT name, SUM(value) AS yds FROM player_game_stats
  WHERE stat = 'rushing_yds' GROUP BY player_id ORDER BY yds DESC LIMIT 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return printQuery(db, strings.Join(args, " "))
}

func printQuery(db *storage.DB, query string) error {
	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	report.PrintRows(os.Stdout, cols, rows)
	return nil
}
