// Package aggregator combines per-participant statistics across plays and
// games.
package aggregator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pable/nflfeed/internal/model"
)

// Policy selects how two values of the same stat are combined.
type Policy int

const (
	// Sum adds values; an absent stat counts as 0.
	Sum Policy = iota
	// Max keeps the larger recorded value. It reconciles two reports of the
	// same game that may each be incomplete.
	Max
)

func (p Policy) String() string {
	switch p {
	case Sum:
		return "sum"
	case Max:
		return "max"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy maps "sum" or "max" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum", "":
		return Sum, nil
	case "max":
		return Max, nil
	}
	return Sum, fmt.Errorf("unknown combine policy %q", s)
}

// Combine merges every record sharing a participant id across all inputs.
// Stats and Games are combined under the policy. Name, Team, Position and
// Home survive only when every merged record agrees; otherwise they become
// unknown. Output is sorted by participant id, so input order never matters.
func Combine(policy Policy, inputs ...[]model.ParticipantStats) []model.ParticipantStats {
	acc := make(map[string]*model.ParticipantStats)
	for _, in := range inputs {
		for _, rec := range in {
			cur, ok := acc[rec.ID]
			if !ok {
				cp := rec.Clone()
				acc[rec.ID] = &cp
				continue
			}
			merge(policy, cur, &rec)
		}
	}
	return sorted(acc)
}

// merge folds src into dst.
func merge(policy Policy, dst, src *model.ParticipantStats) {
	dst.Name = agree(dst.Name, src.Name)
	dst.Team = agree(dst.Team, src.Team)
	dst.Position = agree(dst.Position, src.Position)
	if dst.Home != src.Home {
		dst.Home = model.SideUnknown
	}

	switch policy {
	case Max:
		if src.Games > dst.Games {
			dst.Games = src.Games
		}
		for k, v := range src.Stats {
			if cur, ok := dst.Stats[k]; !ok || v > cur {
				dst.Stats[k] = v
			}
		}
	default:
		dst.Games += src.Games
		for k, v := range src.Stats {
			dst.Stats[k] += v
		}
	}
}

// agree returns a when both values match and "" otherwise. Once unknown, an
// attribute stays unknown.
func agree(a, b string) string {
	if a == b {
		return a
	}
	return ""
}

func sorted(acc map[string]*model.ParticipantStats) []model.ParticipantStats {
	out := make([]model.ParticipantStats, 0, len(acc))
	for _, p := range acc {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CombineGames sums the game-level statistics of several games.
func CombineGames(games ...*model.Snapshot) []model.ParticipantStats {
	inputs := make([][]model.ParticipantStats, 0, len(games))
	for _, g := range games {
		if g != nil {
			inputs = append(inputs, g.Players)
		}
	}
	return Combine(Sum, inputs...)
}

// PlayStats sums the per-play stat deltas of one game into per-participant
// totals. Every participant is credited with one game; the home flag comes
// from comparing the participant's team with the snapshot's home team.
// Team-level stats are skipped.
func PlayStats(s *model.Snapshot) []model.ParticipantStats {
	if s == nil {
		return nil
	}
	acc := make(map[string]*model.ParticipantStats)
	for _, d := range s.Drives {
		for _, p := range d.Plays {
			for id, stats := range p.Stats {
				if id == model.TeamParticipant {
					continue
				}
				who := p.Participants[id]
				rec := model.ParticipantStats{
					ID:    id,
					Name:  who.Name,
					Team:  who.Team,
					Home:  sideOf(s, who.Team),
					Games: 1,
					Stats: stats,
				}
				cur, ok := acc[id]
				if !ok {
					cp := rec.Clone()
					acc[id] = &cp
					continue
				}
				games := cur.Games
				merge(Sum, cur, &rec)
				cur.Games = games
			}
		}
	}
	return sorted(acc)
}

func sideOf(s *model.Snapshot, team string) model.Side {
	switch {
	case team == "":
		return model.SideUnknown
	case team == s.Home.Abbr:
		return model.SideHome
	case team == s.Away.Abbr:
		return model.SideAway
	}
	return model.SideUnknown
}

// Reconcile merges game-level and play-level statistics for the same game,
// keeping the larger value of each stat.
func Reconcile(gameLevel, playLevel []model.ParticipantStats) []model.ParticipantStats {
	return Combine(Max, gameLevel, playLevel)
}
