// Package diff classifies the plays that differ between two snapshots of the
// same game.
package diff

import (
	"sort"

	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/normalize"
)

// Compute returns the plays of cur that are new relative to prev (added) or
// whose canonical key matches a prior play but whose stats differ (changed).
// A play whose key is new but which matches a vanished prior play on
// everything except the quarter is the same event re-tagged upstream; it is
// reported once as changed, carrying its new quarter.
// A nil prev is treated as an empty game. Each key appears at most once.
func Compute(prev, cur *model.Snapshot) model.GameDiff {
	out := model.GameDiff{}
	if cur == nil {
		return out
	}
	out.GameID = cur.GameID

	before := make(map[normalize.Key]model.Play)
	if prev != nil {
		for _, p := range prev.Plays() {
			k := normalize.KeyOf(p)
			if _, ok := before[k]; !ok {
				before[k] = p
			}
		}
	}

	// Prior plays whose exact key is gone from cur, by quarter-free key.
	current := make(map[normalize.Key]struct{})
	for _, p := range cur.Plays() {
		current[normalize.KeyOf(p)] = struct{}{}
	}
	retagged := make(map[normalize.Key][]model.Play)
	if prev != nil {
		for _, p := range prev.Plays() {
			if _, ok := current[normalize.KeyOf(p)]; ok {
				continue
			}
			ck := normalize.ContentKey(p)
			retagged[ck] = append(retagged[ck], p)
		}
	}

	type entry struct {
		change model.PlayChange
		order  int
	}
	var entries []entry
	emitted := make(map[normalize.Key]struct{})
	for i, p := range cur.Plays() {
		k := normalize.KeyOf(p)
		if _, dup := emitted[k]; dup {
			continue
		}
		old, existed := before[k]
		switch {
		case !existed:
			ck := normalize.ContentKey(p)
			if olds := retagged[ck]; len(olds) > 0 {
				prevCopy := olds[0].Clone()
				retagged[ck] = olds[1:]
				entries = append(entries, entry{model.PlayChange{
					Kind: model.ChangeChanged, Key: k.String(), Play: p.Clone(), Previous: &prevCopy,
				}, i})
				break
			}
			entries = append(entries, entry{model.PlayChange{
				Kind: model.ChangeAdded, Key: k.String(), Play: p.Clone(),
			}, i})
		case !StatsEqual(old.Stats, p.Stats):
			prevCopy := old.Clone()
			entries = append(entries, entry{model.PlayChange{
				Kind: model.ChangeChanged, Key: k.String(), Play: p.Clone(), Previous: &prevCopy,
			}, i})
		default:
			continue
		}
		emitted[k] = struct{}{}
	}

	// Chronological: quarter ascending, clock descending, feed order last.
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].change.Play, entries[j].change.Play
		if a.Quarter != b.Quarter {
			return a.Quarter < b.Quarter
		}
		as, _ := normalize.ClockSeconds(a.Clock)
		bs, _ := normalize.ClockSeconds(b.Clock)
		if as != bs {
			return as > bs
		}
		return entries[i].order < entries[j].order
	})

	out.Changes = make([]model.PlayChange, len(entries))
	for i, e := range entries {
		out.Changes[i] = e.change
	}
	return out
}

// StatsEqual reports whether two per-participant stat maps hold the same
// values. Zero-valued stats are significant: a stat recorded as 0 differs
// from an absent one.
func StatsEqual(a, b map[string]map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for id, as := range a {
		bs, ok := b[id]
		if !ok || len(as) != len(bs) {
			return false
		}
		for k, av := range as {
			bv, ok := bs[k]
			if !ok || av != bv {
				return false
			}
		}
	}
	return true
}
