package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pable/nflfeed/internal/storage"
)

// gameFlags narrows a command to a set of stored games.
type gameFlags struct {
	season int
	phase  string
	week   int
	team   string
}

func (f *gameFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&f.season, "season", 0, "season year (e.g. 2013)")
	fs.StringVar(&f.phase, "phase", "", "season phase: PRE, REG or POST")
	fs.IntVar(&f.week, "week", 0, "week number within the phase")
	fs.StringVar(&f.team, "team", "", "games involving this team (e.g. BUF)")
}

func (f *gameFlags) filter() (storage.GameFilter, error) {
	p, err := parsePhase(f.phase)
	if err != nil {
		return storage.GameFilter{}, err
	}
	return storage.GameFilter{SeasonYear: f.season, Phase: p, Week: f.week, Team: f.team}, nil
}

var listGameFlags gameFlags

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored games",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listGameFlags.register(listCmd.Flags())
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := listGameFlags.filter()
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	return listGames(os.Stdout, db, f)
}
