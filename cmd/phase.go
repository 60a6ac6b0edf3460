package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/nflfeed/internal/phase"
	"github.com/pable/nflfeed/internal/report"
)

var (
	phaseDate     string
	phaseSchedule string
)

var phaseCmd = &cobra.Command{
	Use:   "phase",
	Short: "Show the season phase and week for a date",
	Long: `Infers the season year, phase (PRE, REG, POST) and week for a date from the
schedule file and lists that week's games.

Examples:
  nflfeed phase
  nflfeed phase --date 2013-09-15`,
	Args: cobra.NoArgs,
	RunE: runPhase,
}

func init() {
	phaseCmd.Flags().StringVar(&phaseDate, "date", "", "date to resolve (YYYY-MM-DD or RFC3339; default now)")
	phaseCmd.Flags().StringVar(&phaseSchedule, "schedule", "", "schedule JSON file (default from config)")
}

func runPhase(cmd *cobra.Command, _ []string) error {
	at, err := parseDate(phaseDate)
	if err != nil {
		return err
	}
	path := cfg.ScheduleFile
	if phaseSchedule != "" {
		path = phaseSchedule
	}

	sched, err := phase.FileProvider{Path: path}.Schedule(cmd.Context())
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	res, err := sched.Infer(at)
	if err != nil {
		return fmt.Errorf("infer phase: %w", err)
	}
	report.PrintWeek(os.Stdout, res, sched.GamesInWeek(res.Year, res.Phase, res.Week))
	return nil
}

// parseDate accepts an empty string (now), a date or an RFC3339 timestamp.
// Bare dates resolve to noon UTC.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC3339", s)
	}
	return d.Add(12 * time.Hour), nil
}
