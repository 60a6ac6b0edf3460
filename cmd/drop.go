package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dropForce bool

// dropCmd deletes one stored game, or the whole database.
var dropCmd = &cobra.Command{
	Use:   "drop [game-id]",
	Short: "Delete a stored game or the whole database",
	Long: `With a game id, removes that game and its player stats so it can be stored
again. Without one, permanently deletes the SQLite database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return dropGame(args[0])
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		err := os.Remove(dbPath + suffix)
		if err == nil || os.IsNotExist(err) {
			continue
		}
		return fmt.Errorf("remove database: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}

func dropGame(id string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ok, err := db.DeleteGame(id)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(os.Stdout, "Game %s is not stored, nothing to drop.\n", id)
		return nil
	}
	fmt.Fprintf(os.Stdout, "Deleted game %s.\n", id)
	return nil
}
