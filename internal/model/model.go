package model

import (
	"strings"
	"time"
)

// Phase is a segment of the football season.
type Phase string

const (
	PhasePre  Phase = "PRE"
	PhaseReg  Phase = "REG"
	PhasePost Phase = "POST"
)

// ParsePhase maps a schedule tag to a Phase. The scorestrip feed uses "P" for
// preseason and "PRO" for the pro bowl week.
func ParsePhase(s string) (Phase, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PRE", "P":
		return PhasePre, true
	case "REG", "R":
		return PhaseReg, true
	case "POST", "PRO":
		return PhasePost, true
	}
	return "", false
}

// Side records whether a participant played at home. It is tri-state because
// combining home and away appearances yields no meaningful value.
type Side int

const (
	SideUnknown Side = 0
	SideHome    Side = 1
	SideAway    Side = 2
)

func (s Side) String() string {
	switch s {
	case SideHome:
		return "home"
	case SideAway:
		return "away"
	default:
		return "?"
	}
}

// ---- Feed state ----

// TeamScore is one team's line on the scoreboard.
type TeamScore struct {
	Abbr      string `json:"abbr"`
	Score     int    `json:"score"`
	ByQuarter []int  `json:"by_quarter,omitempty"` // index 0 = Q1, index 4 = OT
}

// Clock is the game clock as reported by the feed. Quarter is a string because
// the feed reports "Halftime", "Final" and "final overtime" there.
type Clock struct {
	Quarter   string `json:"quarter"`
	Remaining string `json:"remaining"`
}

// TeamParticipant is the participant id the feed uses for team-level stats.
const TeamParticipant = "0"

// Play is a single event record. Stats holds the per-participant deltas the
// play produced: participant id -> stat name -> value.
type Play struct {
	ID           string                        `json:"id"` // source-assigned, unstable
	Team         string                        `json:"team"`
	Quarter      int                           `json:"quarter"` // as reported; Drive.Quarter holds the corrected value
	Clock        string                        `json:"clock"`   // "MM:SS" remaining in quarter
	Down         int                           `json:"down"`
	YardsToGo    int                           `json:"yards_to_go"`
	YardLine     string                        `json:"yard_line"`
	Desc         string                        `json:"desc"`
	Stats        map[string]map[string]float64 `json:"stats,omitempty"`
	Participants map[string]Participant        `json:"participants,omitempty"`
}

// Participant identifies a player as the feed names them on a play.
type Participant struct {
	Name string `json:"name"`
	Team string `json:"team"`
}

// Clone returns a deep copy of the play.
func (p Play) Clone() Play {
	out := p
	if p.Stats != nil {
		out.Stats = make(map[string]map[string]float64, len(p.Stats))
		for id, stats := range p.Stats {
			cp := make(map[string]float64, len(stats))
			for k, v := range stats {
				cp[k] = v
			}
			out.Stats[id] = cp
		}
	}
	if p.Participants != nil {
		out.Participants = make(map[string]Participant, len(p.Participants))
		for id, who := range p.Participants {
			out.Participants[id] = who
		}
	}
	return out
}

// Drive is a maximal run of plays by one team in continuous possession.
type Drive struct {
	Number        int    `json:"number"`
	Team          string `json:"team"`
	StartYardLine string `json:"start_yard_line"`
	Quarter       int    `json:"quarter"`
	Plays         []Play `json:"plays"`
}

// Snapshot is the parsed state of one game at one point in time.
type Snapshot struct {
	GameID    string             `json:"game_id"`
	Home      TeamScore          `json:"home"`
	Away      TeamScore          `json:"away"`
	Clock     Clock              `json:"clock"`
	Drives    []Drive            `json:"drives"`
	Completed bool               `json:"completed"`
	Players   []ParticipantStats `json:"players,omitempty"` // game-level reporting
	FetchedAt time.Time          `json:"fetched_at"`
}

// Plays returns every play of the game in drive order.
func (s *Snapshot) Plays() []Play {
	var out []Play
	for _, d := range s.Drives {
		out = append(out, d.Plays...)
	}
	return out
}

// Winner returns the abbreviation of the leading team, or "TIE".
func (s *Snapshot) Winner() string {
	switch {
	case s.Home.Score > s.Away.Score:
		return s.Home.Abbr
	case s.Away.Score > s.Home.Score:
		return s.Away.Abbr
	default:
		return "TIE"
	}
}

// Clone returns a deep copy so callers can hold a snapshot without sharing
// maps with its producer.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Home.ByQuarter = append([]int(nil), s.Home.ByQuarter...)
	out.Away.ByQuarter = append([]int(nil), s.Away.ByQuarter...)
	out.Drives = make([]Drive, len(s.Drives))
	for i, d := range s.Drives {
		cp := d
		cp.Plays = make([]Play, len(d.Plays))
		for j, p := range d.Plays {
			cp.Plays[j] = p.Clone()
		}
		out.Drives[i] = cp
	}
	out.Players = make([]ParticipantStats, len(s.Players))
	for i, p := range s.Players {
		out.Players[i] = p.Clone()
	}
	return &out
}

// ---- Aggregated metrics ----

// Categories are the statistical categories reported by GameCenter. Stat names
// are prefixed with their category, e.g. "rushing_yds".
var Categories = []string{
	"passing", "rushing", "receiving", "fumbles", "kicking",
	"punting", "kickret", "puntret", "defense", "penalty",
}

// ParticipantStats holds one participant's statistics over some set of plays
// or games. Name, Team, Position and Home are empty/unknown when the inputs
// that produced them disagreed.
type ParticipantStats struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Team     string             `json:"team"`
	Position string             `json:"position,omitempty"`
	Home     Side               `json:"home"`
	Games    int                `json:"games"`
	Stats    map[string]float64 `json:"stats"`
}

// Stat returns the named stat and whether it was recorded.
func (p *ParticipantStats) Stat(name string) (float64, bool) {
	v, ok := p.Stats[name]
	return v, ok
}

// HasCategory reports whether any stat belongs to the category.
func (p *ParticipantStats) HasCategory(cat string) bool {
	for k := range p.Stats {
		if k == cat || strings.HasPrefix(k, cat+"_") {
			return true
		}
	}
	return false
}

// Touchdowns sums every "*_tds" stat across categories. defense_tds rolls up
// the per-kind defensive fields and is skipped.
func (p *ParticipantStats) Touchdowns() float64 {
	var n float64
	for k, v := range p.Stats {
		if strings.HasSuffix(k, "_tds") && k != "defense_tds" {
			n += v
		}
	}
	return n
}

// Clone returns a deep copy of the stats record.
func (p ParticipantStats) Clone() ParticipantStats {
	out := p
	out.Stats = make(map[string]float64, len(p.Stats))
	for k, v := range p.Stats {
		out.Stats[k] = v
	}
	return out
}

// ---- Diffs ----

// ChangeKind classifies a play in a diff.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeChanged ChangeKind = "changed"
)

// PlayChange is one entry of a GameDiff. Previous is set for changed plays.
type PlayChange struct {
	Kind     ChangeKind `json:"kind"`
	Key      string     `json:"key"`
	Play     Play       `json:"play"`
	Previous *Play      `json:"previous,omitempty"`
}

// GameDiff lists the plays added or changed between two snapshots of a game,
// ordered by quarter then by descending clock.
type GameDiff struct {
	GameID  string       `json:"game_id"`
	Changes []PlayChange `json:"changes"`
}

// Empty reports whether the diff carries no changes.
func (d *GameDiff) Empty() bool {
	return len(d.Changes) == 0
}

// StoredGame is a lightweight record for list/show commands.
type StoredGame struct {
	GameID      string
	Home, Away  string
	HomeScore   int
	AwayScore   int
	SeasonYear  int
	Phase       Phase
	Week        int
	CompletedAt time.Time
}
