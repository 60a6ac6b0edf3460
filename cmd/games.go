package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/pable/nflfeed/internal/aggregator"
	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/query"
	"github.com/pable/nflfeed/internal/report"
	"github.com/pable/nflfeed/internal/storage"
)

// statsRequest selects stored games and shapes the combined player table.
type statsRequest struct {
	Games   storage.GameFilter
	Policy  aggregator.Policy
	Filters []string // "field op value"
	Sort    string
	Asc     bool
	Limit   int
	Columns []string
}

// combinedStats combines the player stats of every game matched by f. It also
// returns how many games contributed.
func combinedStats(db *storage.DB, f storage.GameFilter, policy aggregator.Policy) ([]model.ParticipantStats, int, error) {
	games, err := db.ListGames(f)
	if err != nil {
		return nil, 0, fmt.Errorf("list games: %w", err)
	}
	perGame := make([][]model.ParticipantStats, 0, len(games))
	for _, g := range games {
		ps, err := db.GamePlayerStats(g.GameID)
		if err != nil {
			return nil, 0, fmt.Errorf("player stats for %s: %w", g.GameID, err)
		}
		perGame = append(perGame, ps)
	}
	return aggregator.Combine(policy, perGame...), len(games), nil
}

// apply runs the request's filters, ordering and limit.
func (r statsRequest) apply(stats []model.ParticipantStats) ([]model.ParticipantStats, error) {
	q := query.From(stats)
	for _, expr := range r.Filters {
		field, pred, err := query.ParsePredicate(expr)
		if err != nil {
			return nil, err
		}
		q = q.Filter(field, pred)
	}
	if r.Sort != "" {
		q = q.Sort(r.Sort, !r.Asc)
	}
	if r.Limit > 0 {
		q = q.Limit(r.Limit)
	}
	return q.All(), nil
}

// columns returns the requested stat columns, or the sort field followed by
// the most common stats.
func (r statsRequest) columns(rows []model.ParticipantStats) []string {
	if len(r.Columns) > 0 {
		return r.Columns
	}
	auto := report.StatColumns(rows)
	if r.Sort == "" || isAttribute(r.Sort) {
		return auto
	}
	cols := []string{r.Sort}
	for _, c := range auto {
		if c != r.Sort {
			cols = append(cols, c)
		}
	}
	return cols
}

func isAttribute(field string) bool {
	switch field {
	case "id", "name", "team", "position", "home", "games", "touchdowns":
		return true
	}
	return false
}

// printStats runs req against the database and prints the result.
func printStats(w io.Writer, db *storage.DB, req statsRequest) error {
	stats, n, err := combinedStats(db, req.Games, req.Policy)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(w, "No stored games match.")
		return nil
	}
	rows, err := req.apply(stats)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d games, %d players (%s)\n\n", n, len(rows), req.Policy)
	report.PrintStats(w, rows, req.columns(rows))
	return nil
}

// showGame prints a stored game's scoreboard, drives and player stats.
func showGame(w io.Writer, db *storage.DB, prefix string) error {
	g, err := db.GetGameByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("query game: %w", err)
	}
	if g == nil {
		return fmt.Errorf("no stored game with id prefix %q", prefix)
	}
	snap, ok, err := db.LoadSnapshot(g.GameID)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	stats, err := db.GamePlayerStats(g.GameID)
	if err != nil {
		return fmt.Errorf("get player stats: %w", err)
	}

	fmt.Fprintf(w, "\n%d %s week %d\n", g.SeasonYear, g.Phase, g.Week)
	if ok {
		report.PrintScoreboard(w, snap)
		fmt.Fprintln(w)
		report.PrintDrives(w, snap)
	}
	fmt.Fprintln(w)
	report.PrintStats(w, stats, report.StatColumns(stats))
	return nil
}

// listGames prints stored games matching f.
func listGames(w io.Writer, db *storage.DB, f storage.GameFilter) error {
	games, err := db.ListGames(f)
	if err != nil {
		return fmt.Errorf("list games: %w", err)
	}
	if len(games) == 0 {
		fmt.Fprintln(w, "No games stored yet. Run 'nflfeed watch' or 'nflfeed fetch <game-id> --save' to add some.")
		return nil
	}
	report.PrintGames(w, games)
	return nil
}

// parsePhase accepts PRE, REG or POST in any case; empty matches any phase.
func parsePhase(s string) (model.Phase, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	p, ok := model.ParsePhase(s)
	if !ok {
		return "", fmt.Errorf("invalid phase %q: use PRE, REG or POST", s)
	}
	return p, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
