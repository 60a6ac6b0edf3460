// Package main is the entry point for the nflfeed CLI, which follows live NFL
// GameCenter feeds, reports play-level diffs and aggregates player statistics.
package main

import "github.com/pable/nflfeed/cmd"

func main() {
	cmd.Execute()
}
