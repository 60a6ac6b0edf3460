package gamecenter

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pable/nflfeed/internal/drive"
	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/statmap"
)

// ErrNotAvailable means the feed has no data for the game yet.
var ErrNotAvailable = errors.New("game data not available")

// Decode parses one GameCenter document for gameID. The document is keyed by
// game id:
//
//	{"2013091500": {"home": {...}, "away": {...}, "drives": {...},
//	  "qtr": "Final", "clock": "00:00"}}
//
// An empty document means the game has not started and yields
// ErrNotAvailable. Any other structural problem yields an error wrapping
// model.ErrMalformedSnapshot. Drives dropped during assembly are returned
// alongside the snapshot.
func Decode(gameID string, data []byte) (*model.Snapshot, []error, error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, fmt.Errorf("decode %s: invalid JSON: %w", gameID, model.ErrMalformedSnapshot)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, nil, fmt.Errorf("decode %s: document is not an object: %w", gameID, model.ErrMalformedSnapshot)
	}
	game := root.Get(gjson.Escape(gameID))
	if !game.Exists() {
		if len(root.Map()) == 0 {
			return nil, nil, ErrNotAvailable
		}
		return nil, nil, fmt.Errorf("decode %s: game missing from document: %w", gameID, model.ErrMalformedSnapshot)
	}
	if !game.IsObject() || !game.Get("home").IsObject() || !game.Get("away").IsObject() {
		return nil, nil, fmt.Errorf("decode %s: missing team blocks: %w", gameID, model.ErrMalformedSnapshot)
	}

	s := &model.Snapshot{
		GameID: gameID,
		Home:   teamScore(game.Get("home")),
		Away:   teamScore(game.Get("away")),
		Clock: model.Clock{
			Quarter:   game.Get("qtr").String(),
			Remaining: game.Get("clock").String(),
		},
	}
	s.Completed = strings.HasPrefix(strings.ToLower(strings.TrimSpace(s.Clock.Quarter)), "final")
	s.Players = gamePlayers(game, s.Home.Abbr, s.Away.Abbr)

	plays, err := rawPlays(game.Get("drives"))
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", gameID, err)
	}
	drives, dropped := drive.Assemble(plays)
	s.Drives = drives
	return s, dropped, nil
}

func teamScore(t gjson.Result) model.TeamScore {
	ts := model.TeamScore{
		Abbr:  t.Get("abbr").String(),
		Score: int(t.Get("score.T").Int()),
	}
	for q := 1; q <= 5; q++ {
		ts.ByQuarter = append(ts.ByQuarter, int(t.Get("score."+strconv.Itoa(q)).Int()))
	}
	return ts
}

// gamePlayers reads the game-level stat blocks. Each stat is named
// "<category>_<field>", e.g. passing "yds" becomes "passing_yds".
func gamePlayers(game gjson.Result, home, away string) []model.ParticipantStats {
	byID := make(map[string]*model.ParticipantStats)
	for _, side := range []struct {
		key  string
		abbr string
		home model.Side
	}{{"home", home, model.SideHome}, {"away", away, model.SideAway}} {
		stats := game.Get(side.key + ".stats")
		for _, cat := range model.Categories {
			stats.Get(cat).ForEach(func(pid, fields gjson.Result) bool {
				id := pid.String()
				p, ok := byID[id]
				if !ok {
					p = &model.ParticipantStats{
						ID:    id,
						Name:  fields.Get("name").String(),
						Team:  side.abbr,
						Home:  side.home,
						Games: 1,
						Stats: make(map[string]float64),
					}
					byID[id] = p
				}
				fields.ForEach(func(k, v gjson.Result) bool {
					if v.Type == gjson.Number {
						p.Stats[cat+"_"+k.String()] = v.Float()
					}
					return true
				})
				return true
			})
		}
	}
	out := make([]model.ParticipantStats, 0, len(byID))
	for _, p := range byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// rawPlays flattens the drives block into feed-ordered plays: drives by
// number, plays by their numeric key.
func rawPlays(drives gjson.Result) ([]model.Play, error) {
	if !drives.Exists() {
		return nil, nil
	}
	if !drives.IsObject() {
		return nil, fmt.Errorf("drives is not an object: %w", model.ErrMalformedSnapshot)
	}

	var plays []model.Play
	for _, d := range numericKeys(drives) {
		for _, p := range numericKeys(d.val.Get("plays")) {
			plays = append(plays, play(p.key, p.val))
		}
	}
	return plays, nil
}

type keyed struct {
	key string
	n   int
	val gjson.Result
}

// numericKeys returns the object members with integer keys, in key order.
// Other members (e.g. "crntdrv") are skipped.
func numericKeys(obj gjson.Result) []keyed {
	var out []keyed
	obj.ForEach(func(k, v gjson.Result) bool {
		n, err := strconv.Atoi(k.String())
		if err == nil && v.IsObject() {
			out = append(out, keyed{k.String(), n, v})
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].n < out[j].n })
	return out
}

func play(id string, p gjson.Result) model.Play {
	pl := model.Play{
		ID:        id,
		Team:      p.Get("posteam").String(),
		Quarter:   int(p.Get("qtr").Int()),
		Clock:     p.Get("time").String(),
		Down:      int(p.Get("down").Int()),
		YardsToGo: int(p.Get("ydstogo").Int()),
		YardLine:  p.Get("yrdln").String(),
		Desc:      p.Get("desc").String(),
		Stats:     make(map[string]map[string]float64),
	}
	p.Get("players").ForEach(func(pid, events gjson.Result) bool {
		id := pid.String()
		events.ForEach(func(_, ev gjson.Result) bool {
			vals, err := statmap.Values(int(ev.Get("statId").Int()), ev.Get("yards").Float())
			if err != nil {
				return true // stat ids outside the table carry nothing we report
			}
			acc := pl.Stats[id]
			if acc == nil {
				acc = make(map[string]float64)
				pl.Stats[id] = acc
			}
			for k, v := range vals {
				acc[k] += v
			}
			if id != model.TeamParticipant {
				if pl.Participants == nil {
					pl.Participants = make(map[string]model.Participant)
				}
				pl.Participants[id] = model.Participant{
					Name: ev.Get("playerName").String(),
					Team: ev.Get("clubcode").String(),
				}
			}
			return true
		})
		return true
	})
	return pl
}
