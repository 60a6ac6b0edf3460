// Package drive groups a game's plays into possession-bounded drives.
package drive

import (
	"fmt"
	"strings"

	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/normalize"
)

// Assemble groups ordered plays into drives at possession changes, drops
// drives holding structurally invalid plays, removes duplicate plays by
// canonical key (first occurrence wins), discards drives left empty and
// assigns each drive its majority quarter. Plays keep the quarter the feed
// reported, so a play's canonical key does not move when a later play shifts
// its drive's majority.
//
// Assemble never fails. Each dropped drive is reported as an error wrapping
// model.ErrCorruptDrive; the worst case is an empty result.
func Assemble(plays []model.Play) ([]model.Drive, []error) {
	var dropped []error

	// ---- Pass 1: split at possession changes. ----
	var groups [][]model.Play
	for i, p := range plays {
		if i == 0 || p.Team != plays[i-1].Team {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], p)
	}

	// ---- Pass 2: validate, dedup, vote. ----
	seen := make(map[normalize.Key]struct{})
	var drives []model.Drive
	for _, g := range groups {
		if reason := invalid(g); reason != "" {
			dropped = append(dropped, &model.CorruptDriveError{
				Team: g[0].Team, Plays: len(g), Reason: reason,
			})
			continue
		}

		kept := make([]model.Play, 0, len(g))
		for _, p := range g {
			k := normalize.KeyOf(p)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			kept = append(kept, p.Clone())
		}
		if len(kept) == 0 {
			continue
		}

		q := MajorityQuarter(kept)
		drives = append(drives, model.Drive{
			Number:        len(drives) + 1,
			Team:          kept[0].Team,
			StartYardLine: kept[0].YardLine,
			Quarter:       q,
			Plays:         kept,
		})
	}
	return drives, dropped
}

// MajorityQuarter returns the most common reported quarter among plays, the
// earliest quarter winning ties. It returns 0 for no plays.
func MajorityQuarter(plays []model.Play) int {
	counts := make(map[int]int)
	for _, p := range plays {
		counts[p.Quarter]++
	}
	best, bestCount := 0, 0
	for q, c := range counts {
		if c > bestCount || (c == bestCount && q < best) {
			best, bestCount = q, c
		}
	}
	return best
}

// invalid returns why a drive cannot be trusted, or "" when it can.
func invalid(plays []model.Play) string {
	for _, p := range plays {
		switch {
		case strings.TrimSpace(p.Team) == "":
			return fmt.Sprintf("play %s has no possession team", p.ID)
		case p.Quarter < 1:
			return fmt.Sprintf("play %s has quarter %d", p.ID, p.Quarter)
		}
		if _, ok := normalize.ClockSeconds(p.Clock); !ok {
			return fmt.Sprintf("play %s has unreadable clock %q", p.ID, p.Clock)
		}
	}
	return ""
}
