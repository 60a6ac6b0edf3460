package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/nflfeed/internal/aggregator"
)

// stats command flags.
var (
	statsGameFlags gameFlags
	// statsFilters are "field op value" predicates, all of which must hold.
	statsFilters []string
	statsSort    string
	statsAsc     bool
	statsLimit   int
	statsColumns string
	statsPolicy  string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Combine player stats over stored games",
	Long: `Combines the per-player statistics of every stored game matching the game
filters, then filters, sorts and limits the players.

Fields are player attributes (id, name, team, position, home, games,
touchdowns) or stat names such as rushing_yds or defense_sk. Players without
a field never match a filter on it and sort last. The category field filters
on stat categories: category=passing keeps players with any passing stat.

The sum policy adds stats across games. The max policy keeps the largest value
of each stat, which is useful for single-game highs.

Examples:
  nflfeed stats --season 2013 --week 2 --sort rushing_yds --limit 10
  nflfeed stats --team BUF --filter team=BUF --filter "passing_att>=10" --sort passing_yds
  nflfeed stats --filter category=kicking --sort kicking_fgm
  nflfeed stats --policy max --sort receiving_yds --columns receiving_yds,receiving_rec`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsGameFlags.register(statsCmd.Flags())
	statsCmd.Flags().StringArrayVar(&statsFilters, "filter", nil, `player predicate, repeatable (e.g. "rushing_yds>50", "team=BUF", "category=passing")`)
	statsCmd.Flags().StringVar(&statsSort, "sort", "", "field to sort by, descending")
	statsCmd.Flags().BoolVar(&statsAsc, "asc", false, "sort ascending")
	statsCmd.Flags().IntVar(&statsLimit, "limit", 25, "maximum players to print (0 = all)")
	statsCmd.Flags().StringVar(&statsColumns, "columns", "", "comma-separated stat columns (default: most common stats)")
	statsCmd.Flags().StringVar(&statsPolicy, "policy", "sum", "combine policy across games: sum or max")
}

func runStats(cmd *cobra.Command, args []string) error {
	f, err := statsGameFlags.filter()
	if err != nil {
		return err
	}
	policy, err := aggregator.ParsePolicy(statsPolicy)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return printStats(os.Stdout, db, statsRequest{
		Games:   f,
		Policy:  policy,
		Filters: statsFilters,
		Sort:    statsSort,
		Asc:     statsAsc,
		Limit:   statsLimit,
		Columns: splitList(statsColumns),
	})
}
