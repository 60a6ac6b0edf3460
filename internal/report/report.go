package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/nflfeed/internal/live"
	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/phase"
)

// maxAutoColumns caps the stat columns picked by StatColumns.
const maxAutoColumns = 10

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

// PrintUpdate prints one poller tick: a status line, a table per game diff
// and a line per game that finished.
func PrintUpdate(w io.Writer, u live.Update) {
	fmt.Fprintf(w, "\n[%s] %s  |  active %d  |  completed %d  |  tick %s\n",
		u.At.Local().Format("15:04:05"), u.Phase, len(u.Active), len(u.Completed), u.TickID.String()[:8])

	for _, id := range sortedStatus(u.Status) {
		if st := u.Status[id]; st != live.StatusOK {
			fmt.Fprintf(w, "  %s: %s\n", id, st)
		}
	}

	for _, d := range u.Diffs {
		header := d.GameID
		if s := u.Snapshots[d.GameID]; s != nil {
			header = scoreLine(s)
		}
		fmt.Fprintf(w, "\n%s\n", header)
		PrintDiff(w, d)
	}

	for _, id := range u.Completed {
		if s := u.Snapshots[id]; s != nil {
			fmt.Fprintf(w, "\nFINAL  %s  (winner %s)\n", scoreLine(s), s.Winner())
		}
	}
}

// updateLine is the JSON form of a tick written by WriteUpdateJSON.
type updateLine struct {
	TickID    string                 `json:"tick_id"`
	At        string                 `json:"at"`
	Phase     string                 `json:"phase"`
	Active    []string               `json:"active"`
	Completed []string               `json:"completed"`
	Status    map[string]live.Status `json:"status"`
	Diffs     []model.GameDiff       `json:"diffs"`
}

// WriteUpdateJSON writes one tick as a single JSON line.
func WriteUpdateJSON(w io.Writer, u live.Update) error {
	line := updateLine{
		TickID:    u.TickID.String(),
		At:        u.At.UTC().Format("2006-01-02T15:04:05Z"),
		Phase:     u.Phase.String(),
		Active:    u.Active,
		Completed: u.Completed,
		Status:    u.Status,
		Diffs:     u.Diffs,
	}
	return json.NewEncoder(w).Encode(line)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// PrintDiff prints the changed plays of one game in order.
func PrintDiff(w io.Writer, d model.GameDiff) {
	table := newTable(w)
	table.Header("Q", "CLOCK", "TEAM", "", "PLAY")
	for _, c := range d.Changes {
		kind := "+"
		if c.Kind == model.ChangeChanged {
			kind = "~"
		}
		table.Append(strconv.Itoa(c.Play.Quarter), c.Play.Clock, c.Play.Team, kind, truncate(c.Play.Desc, 90))
	}
	table.Render()
}

// PrintScoreboard prints the by-quarter line score of a snapshot.
func PrintScoreboard(w io.Writer, s *model.Snapshot) {
	fmt.Fprintf(w, "\nGame: %s  |  %s  |  Clock: %s %s\n\n",
		s.GameID, scoreLine(s), s.Clock.Quarter, s.Clock.Remaining)

	table := newTable(w)
	table.Header("TEAM", "Q1", "Q2", "Q3", "Q4", "OT", "T")
	for _, t := range []model.TeamScore{s.Away, s.Home} {
		row := []any{t.Abbr}
		for q := 0; q < 5; q++ {
			v := "-"
			if q < len(t.ByQuarter) {
				v = strconv.Itoa(t.ByQuarter[q])
			}
			row = append(row, v)
		}
		row = append(row, strconv.Itoa(t.Score))
		table.Append(row...)
	}
	table.Render()
}

// PrintDrives prints a one-line summary per drive.
func PrintDrives(w io.Writer, s *model.Snapshot) {
	table := newTable(w)
	table.Header("#", "TEAM", "Q", "START", "PLAYS", "LAST PLAY")
	for _, d := range s.Drives {
		last := ""
		if n := len(d.Plays); n > 0 {
			last = truncate(d.Plays[n-1].Desc, 70)
		}
		table.Append(strconv.Itoa(d.Number), d.Team, strconv.Itoa(d.Quarter), d.StartYardLine, strconv.Itoa(len(d.Plays)), last)
	}
	table.Render()
}

// StatColumns returns the stat names present in stats, most widely recorded
// first, capped at a readable width.
func StatColumns(stats []model.ParticipantStats) []string {
	seen := make(map[string]int)
	for _, p := range stats {
		for k := range p.Stats {
			seen[k]++
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Slice(cols, func(i, j int) bool {
		if seen[cols[i]] != seen[cols[j]] {
			return seen[cols[i]] > seen[cols[j]]
		}
		return cols[i] < cols[j]
	})
	if len(cols) > maxAutoColumns {
		cols = cols[:maxAutoColumns]
	}
	return cols
}

// PrintStats prints one row per participant with the given stat columns.
// Stats a participant never recorded print as "-".
func PrintStats(w io.Writer, stats []model.ParticipantStats, cols []string) {
	table := newTable(w)
	header := []any{"ID", "NAME", "TEAM", "POS", "GP"}
	for _, c := range cols {
		header = append(header, strings.ToUpper(c))
	}
	table.Header(header...)

	for _, p := range stats {
		row := []any{p.ID, p.Name, p.Team, p.Position, strconv.Itoa(p.Games)}
		for _, c := range cols {
			v, ok := p.Stat(c)
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, formatStat(v))
		}
		table.Append(row...)
	}
	table.Render()
}

// PrintGames lists stored games, newest first as given.
func PrintGames(w io.Writer, games []model.StoredGame) {
	table := newTable(w)
	table.Header("GAME", "SEASON", "WEEK", "AWAY", "HOME", "SCORE", "COMPLETED")
	for _, g := range games {
		table.Append(
			g.GameID,
			strconv.Itoa(g.SeasonYear),
			fmt.Sprintf("%s %d", g.Phase, g.Week),
			g.Away,
			g.Home,
			fmt.Sprintf("%d-%d", g.AwayScore, g.HomeScore),
			g.CompletedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	table.Render()
}

// PrintWeek prints the inferred phase and the week's games.
func PrintWeek(w io.Writer, r phase.Result, games []phase.Game) {
	conf := ""
	if r.LowConfidence {
		conf = "  (low confidence)"
	}
	fmt.Fprintf(w, "Season %d  |  %s week %d%s\n\n", r.Year, r.Phase, r.Week, conf)
	if len(games) == 0 {
		fmt.Fprintln(w, "No games scheduled.")
		return
	}
	table := newTable(w)
	table.Header("GAME", "KICKOFF", "AWAY", "HOME")
	for _, g := range games {
		table.Append(g.ID, g.Kickoff.Local().Format("Mon Jan 2 15:04"), g.Away, g.Home)
	}
	table.Render()
}

// PrintRows prints an arbitrary result set.
func PrintRows(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	table.Header(header...)
	for _, row := range rows {
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = v
		}
		table.Append(vals...)
	}
	table.Render()
	fmt.Fprintf(w, "\n(%d rows)\n", len(rows))
}

func scoreLine(s *model.Snapshot) string {
	return fmt.Sprintf("%s %d @ %s %d", s.Away.Abbr, s.Away.Score, s.Home.Abbr, s.Home.Score)
}

func formatStat(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func sortedStatus(m map[string]live.Status) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
