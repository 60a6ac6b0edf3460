package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/nflfeed/internal/aggregator"
	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/storage"
)

var (
	exportGameFlags gameFlags
	exportFilters   []string
	exportSort      string
	exportPolicy    string
	exportOut       string
)

// exportDoc is the JSON written by export.
type exportDoc struct {
	GeneratedAt string                   `json:"generated_at"`
	Policy      string                   `json:"policy"`
	Filter      exportFilter             `json:"filter"`
	GameCount   int                      `json:"game_count"`
	Players     []model.ParticipantStats `json:"players"`
}

type exportFilter struct {
	Season int    `json:"season,omitempty"`
	Phase  string `json:"phase,omitempty"`
	Week   int    `json:"week,omitempty"`
	Team   string `json:"team,omitempty"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export combined player stats as JSON",
	Long: `Combines player stats over the stored games matching the game filters and
writes them as a JSON document, one object per player.

Example:
  nflfeed export --season 2013 --phase REG --out 2013-reg.json
  nflfeed export --team BUF --filter team=BUF --sort passing_yds`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportGameFlags.register(exportCmd.Flags())
	exportCmd.Flags().StringArrayVar(&exportFilters, "filter", nil, "player predicate, repeatable")
	exportCmd.Flags().StringVar(&exportSort, "sort", "", "field to sort by, descending (default: player id)")
	exportCmd.Flags().StringVar(&exportPolicy, "policy", "sum", "combine policy across games: sum or max")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default: stdout)")
}

func runExport(_ *cobra.Command, _ []string) error {
	f, err := exportGameFlags.filter()
	if err != nil {
		return err
	}
	policy, err := aggregator.ParsePolicy(exportPolicy)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	doc, err := buildExport(db, f, statsRequest{Policy: policy, Filters: exportFilters, Sort: exportSort})
	if err != nil {
		return err
	}
	if doc.GameCount == 0 {
		fmt.Fprintln(os.Stderr, "hint: no stored games match; run 'nflfeed list' to see what is stored")
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if exportOut == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(exportOut, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d players from %d games to %s\n", len(doc.Players), doc.GameCount, exportOut)
	return nil
}

func buildExport(db *storage.DB, f storage.GameFilter, req statsRequest) (*exportDoc, error) {
	stats, n, err := combinedStats(db, f, req.Policy)
	if err != nil {
		return nil, err
	}
	rows, err := req.apply(stats)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.ParticipantStats{}
	}
	return &exportDoc{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Policy:      req.Policy.String(),
		Filter: exportFilter{
			Season: f.SeasonYear,
			Phase:  string(f.Phase),
			Week:   f.Week,
			Team:   f.Team,
		},
		GameCount: n,
		Players:   rows,
	}, nil
}
