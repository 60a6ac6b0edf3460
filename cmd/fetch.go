package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/nflfeed/internal/aggregator"
	"github.com/pable/nflfeed/internal/gamecenter"
	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/phase"
	"github.com/pable/nflfeed/internal/report"
)

// fetch command flags.
var (
	// fetchRaw prints the feed document instead of decoding it.
	fetchRaw bool
	// fetchDrives adds the drive summary table.
	fetchDrives bool
	// fetchSave stores the game when it is final.
	fetchSave bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <game-id>",
	Short: "Fetch one game from the GameCenter feed",
	Long: `Fetches a game's current GameCenter document and prints its scoreboard and
player statistics. Final games can be stored with --save, which makes them
available to list, show, stats and export.

Examples:
  nflfeed fetch 2013091500
  nflfeed fetch 2013091500 --drives --save
  nflfeed fetch 2013091500 --raw > 2013091500_gtd.json`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchRaw, "raw", false, "print the raw feed JSON")
	fetchCmd.Flags().BoolVar(&fetchDrives, "drives", false, "print a drive summary")
	fetchCmd.Flags().BoolVar(&fetchSave, "save", false, "store the game if it is final")
}

func runFetch(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := cmd.Context()
	client := gamecenter.NewClient(cfg.Feed.BaseURL, cfg.RequestTimeout(), logger)

	if fetchRaw {
		data, err := client.Raw(ctx, id)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", id, err)
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	snap, err := client.Fetch(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", id, err)
	}
	stats := aggregator.Reconcile(snap.Players, aggregator.PlayStats(snap))

	report.PrintScoreboard(os.Stdout, snap)
	if fetchDrives {
		fmt.Fprintln(os.Stdout)
		report.PrintDrives(os.Stdout, snap)
	}
	fmt.Fprintln(os.Stdout)
	report.PrintStats(os.Stdout, stats, report.StatColumns(stats))

	if !fetchSave {
		return nil
	}
	if !snap.Completed {
		fmt.Fprintf(os.Stderr, "Game %s is not final (%s); not saved.\n", id, snap.Clock.Quarter)
		return nil
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	g := storedGame(cmd, snap)
	inserted, err := db.SaveCompleted(g, snap, stats)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	if inserted {
		fmt.Fprintf(os.Stdout, "\nSaved %s (%d %s week %d).\n", id, g.SeasonYear, g.Phase, g.Week)
	} else {
		fmt.Fprintf(os.Stdout, "\n%s already stored.\n", id)
	}
	return nil
}

// storedGame builds the game record, taking season and week from the schedule
// when it lists the game.
func storedGame(cmd *cobra.Command, s *model.Snapshot) model.StoredGame {
	g := model.StoredGame{
		GameID:      s.GameID,
		Home:        s.Home.Abbr,
		Away:        s.Away.Abbr,
		HomeScore:   s.Home.Score,
		AwayScore:   s.Away.Score,
		CompletedAt: time.Now().UTC(),
	}
	if sched, err := (phase.FileProvider{Path: cfg.ScheduleFile}).Schedule(cmd.Context()); err == nil {
		if sg, ok := sched.Game(s.GameID); ok {
			g.SeasonYear, g.Phase, g.Week = sg.Year, sg.Phase, sg.Week
			return g
		}
	} else {
		logger.Debug("schedule unavailable for stored game", "error", err)
	}
	if len(s.GameID) >= 8 {
		if d, err := time.Parse("20060102", s.GameID[:8]); err == nil {
			g.SeasonYear = phase.SeasonYear(d)
		}
	}
	return g
}
