package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pable/nflfeed/internal/aggregator"
	"github.com/pable/nflfeed/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cGreeting.Println("nflfeed shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("nflfeed")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		cmd, args := tokens[0], tokens[1:]

		var err error
		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "list":
			err = shellList(db, args)
		case "show":
			if len(args) != 1 {
				cError.Fprintln(os.Stderr, "usage: show <game-id-prefix>")
				continue
			}
			err = showGame(os.Stdout, db, args[0])
		case "stats":
			err = shellStats(db, args)
		case "player":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: player <player-id> [<player-id>...]")
				continue
			}
			for _, id := range args {
				if err = printPlayer(db, id, nil); err != nil {
					break
				}
			}
		case "sql":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: sql <query>")
				continue
			}
			err = printQuery(db, strings.TrimSpace(strings.TrimPrefix(line, cmd)))
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", cmd)
		}
		if err != nil {
			cError.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list [--season N] [--week N] [--team T]", "list stored games"},
		{"show <game-id-prefix>", "show a stored game"},
		{"stats [flags]", "combined player stats; same flags as 'nflfeed stats'"},
		{"player <player-id> [...]", "game-by-game stats for players"},
		{"sql <query>", "run a raw SQL query"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-44s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellList(db *storage.DB, args []string) error {
	var gf gameFlags
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	gf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := gf.filter()
	if err != nil {
		return err
	}
	return listGames(os.Stdout, db, f)
}

func shellStats(db *storage.DB, args []string) error {
	var (
		gf              gameFlags
		req             statsRequest
		policy, columns string
	)
	fs := pflag.NewFlagSet("stats", pflag.ContinueOnError)
	gf.register(fs)
	fs.StringArrayVar(&req.Filters, "filter", nil, "player predicate")
	fs.StringVar(&req.Sort, "sort", "", "sort field")
	fs.BoolVar(&req.Asc, "asc", false, "sort ascending")
	fs.IntVar(&req.Limit, "limit", 25, "maximum players")
	fs.StringVar(&columns, "columns", "", "stat columns")
	fs.StringVar(&policy, "policy", "sum", "sum or max")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if req.Games, err = gf.filter(); err != nil {
		return err
	}
	if req.Policy, err = aggregator.ParsePolicy(policy); err != nil {
		return err
	}
	req.Columns = splitList(columns)
	return printStats(os.Stdout, db, req)
}
