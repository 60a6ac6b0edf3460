package aggregator

import (
	"reflect"
	"testing"

	"github.com/pable/nflfeed/internal/model"
)

// IDs for test players.
const (
	brady   = "00-0019596"
	ridley  = "00-0029018"
	welker  = "00-0020397"
	mcCoyID = "00-0027029"
)

// rec builds a participant record with one game and the given stats.
func rec(id, name, team string, home model.Side, stats map[string]float64) model.ParticipantStats {
	return model.ParticipantStats{ID: id, Name: name, Team: team, Home: home, Games: 1, Stats: stats}
}

func find(t *testing.T, out []model.ParticipantStats, id string) model.ParticipantStats {
	t.Helper()
	for _, p := range out {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("participant %s not in output", id)
	return model.ParticipantStats{}
}

func TestCombine_SumAddsStatsAndGames(t *testing.T) {
	a := []model.ParticipantStats{rec(brady, "T.Brady", "NE", model.SideAway, map[string]float64{"passing_yds": 288, "passing_tds": 2})}
	b := []model.ParticipantStats{rec(brady, "T.Brady", "NE", model.SideAway, map[string]float64{"passing_yds": 185, "rushing_att": 1})}

	out := Combine(Sum, a, b)
	if len(out) != 1 {
		t.Fatalf("want 1 participant, got %d", len(out))
	}
	got := out[0]
	want := map[string]float64{"passing_yds": 473, "passing_tds": 2, "rushing_att": 1}
	if !reflect.DeepEqual(got.Stats, want) {
		t.Errorf("stats: want %v, got %v", want, got.Stats)
	}
	if got.Games != 2 {
		t.Errorf("games: want 2, got %d", got.Games)
	}
	if got.Name != "T.Brady" || got.Team != "NE" || got.Home != model.SideAway {
		t.Errorf("unanimous attributes lost: %+v", got)
	}
}

func TestCombine_AttributeConflictIsUnknown(t *testing.T) {
	a := []model.ParticipantStats{rec(welker, "W.Welker", "NE", model.SideHome, nil)}
	b := []model.ParticipantStats{rec(welker, "W.Welker", "DEN", model.SideAway, nil)}
	got := Combine(Sum, a, b)[0]
	if got.Team != "" {
		t.Errorf("team: want unknown, got %q", got.Team)
	}
	if got.Home != model.SideUnknown {
		t.Errorf("home: want unknown, got %s", got.Home)
	}
	if got.Name != "W.Welker" {
		t.Errorf("name agreed and should survive, got %q", got.Name)
	}
}

// Game-level reporting says 10 rushes, play-level says 12; reconciliation
// must keep 12.
func TestReconcile_MaxKeepsLarger(t *testing.T) {
	game := []model.ParticipantStats{rec(brady, "T.Brady", "NE", model.SideAway, map[string]float64{"rushing_att": 10, "passing_yds": 300})}
	play := []model.ParticipantStats{rec(brady, "T.Brady", "NE", model.SideAway, map[string]float64{"rushing_att": 12, "passing_yds": 290})}

	got := Reconcile(game, play)[0]
	if got.Stats["rushing_att"] != 12 {
		t.Errorf("rushing_att: want 12, got %v", got.Stats["rushing_att"])
	}
	if got.Stats["passing_yds"] != 300 {
		t.Errorf("passing_yds: want 300, got %v", got.Stats["passing_yds"])
	}
	if got.Games != 1 {
		t.Errorf("games under max: want 1, got %d", got.Games)
	}
}

func TestCombine_MaxIsAtLeastEachInput(t *testing.T) {
	inputs := [][]model.ParticipantStats{
		{rec(ridley, "S.Ridley", "NE", model.SideAway, map[string]float64{"rushing_yds": 12, "fumbles_lost": 1})},
		{rec(ridley, "S.Ridley", "NE", model.SideAway, map[string]float64{"rushing_yds": -3})},
		{rec(ridley, "S.Ridley", "NE", model.SideAway, map[string]float64{"rushing_yds": 40, "rushing_tds": 1})},
	}
	got := Combine(Max, inputs...)[0]
	for _, in := range inputs {
		for k, v := range in[0].Stats {
			if got.Stats[k] < v {
				t.Errorf("%s: combined %v is below input %v", k, got.Stats[k], v)
			}
		}
	}
}

func TestCombine_Associative(t *testing.T) {
	a := []model.ParticipantStats{
		rec(brady, "T.Brady", "NE", model.SideHome, map[string]float64{"passing_yds": 10}),
		rec(mcCoyID, "L.McCoy", "PHI", model.SideAway, map[string]float64{"rushing_yds": 5, "defense_sk": 0.5}),
	}
	b := []model.ParticipantStats{
		rec(brady, "T.Brady", "NE", model.SideAway, map[string]float64{"passing_yds": 7, "passing_int": 1}),
	}
	c := []model.ParticipantStats{
		rec(brady, "Tom Brady", "NE", model.SideHome, map[string]float64{"passing_yds": 3}),
		rec(mcCoyID, "L.McCoy", "PHI", model.SideAway, map[string]float64{"defense_sk": 0.5}),
	}
	for _, policy := range []Policy{Sum, Max} {
		left := Combine(policy, Combine(policy, a, b), c)
		right := Combine(policy, a, Combine(policy, b, c))
		flat := Combine(policy, a, b, c)
		if !reflect.DeepEqual(left, right) {
			t.Errorf("%s: (a+b)+c != a+(b+c):\n%+v\n%+v", policy, left, right)
		}
		if !reflect.DeepEqual(left, flat) {
			t.Errorf("%s: nested != flat:\n%+v\n%+v", policy, left, flat)
		}
		swapped := Combine(policy, c, a, b)
		if !reflect.DeepEqual(flat, swapped) {
			t.Errorf("%s: input order changed the result", policy)
		}
	}
}

func TestCombine_SplitSacksSumExactly(t *testing.T) {
	a := []model.ParticipantStats{rec(mcCoyID, "", "", model.SideUnknown, map[string]float64{"defense_sk": 0.5})}
	b := []model.ParticipantStats{rec(mcCoyID, "", "", model.SideUnknown, map[string]float64{"defense_sk": 0.5})}
	if got := Combine(Sum, a, b)[0].Stats["defense_sk"]; got != 1 {
		t.Errorf("want 1 sack, got %v", got)
	}
}

func TestCombine_DoesNotAliasInputs(t *testing.T) {
	a := []model.ParticipantStats{rec(brady, "T.Brady", "NE", model.SideHome, map[string]float64{"passing_yds": 10})}
	b := []model.ParticipantStats{rec(brady, "T.Brady", "NE", model.SideHome, map[string]float64{"passing_yds": 5})}
	Combine(Sum, a, b)
	if a[0].Stats["passing_yds"] != 10 {
		t.Errorf("input mutated: %v", a[0].Stats)
	}
}

func TestCombineGames(t *testing.T) {
	g1 := &model.Snapshot{GameID: "2013090800", Players: []model.ParticipantStats{
		rec(brady, "T.Brady", "NE", model.SideAway, map[string]float64{"passing_yds": 288}),
	}}
	g2 := &model.Snapshot{GameID: "2013091200", Players: []model.ParticipantStats{
		rec(brady, "T.Brady", "NE", model.SideHome, map[string]float64{"passing_yds": 185}),
		rec(welker, "W.Welker", "DEN", model.SideAway, map[string]float64{"receiving_rec": 9}),
	}}
	out := CombineGames(g1, nil, g2)
	if len(out) != 2 {
		t.Fatalf("want 2 participants, got %d", len(out))
	}
	b := find(t, out, brady)
	if b.Stats["passing_yds"] != 473 || b.Games != 2 {
		t.Errorf("brady: want 473 yds over 2 games, got %v over %d", b.Stats["passing_yds"], b.Games)
	}
	if b.Home != model.SideUnknown {
		t.Errorf("home and away games should combine to unknown, got %s", b.Home)
	}
}

func TestPlayStats(t *testing.T) {
	s := &model.Snapshot{
		Home: model.TeamScore{Abbr: "BUF"},
		Away: model.TeamScore{Abbr: "NE"},
		Drives: []model.Drive{{Team: "NE", Plays: []model.Play{
			{
				Stats:        map[string]map[string]float64{brady: {"passing_att": 1, "passing_cmp": 1, "passing_yds": 11}, welker: {"receiving_rec": 1, "receiving_yds": 11}},
				Participants: map[string]model.Participant{brady: {Name: "T.Brady", Team: "NE"}, welker: {Name: "W.Welker", Team: "NE"}},
			},
			{
				Stats:        map[string]map[string]float64{brady: {"passing_att": 1, "passing_incmp": 1}},
				Participants: map[string]model.Participant{brady: {Name: "T.Brady", Team: "NE"}},
			},
		}}},
	}
	out := PlayStats(s)
	if len(out) != 2 {
		t.Fatalf("want 2 participants, got %d", len(out))
	}
	b := find(t, out, brady)
	want := map[string]float64{"passing_att": 2, "passing_cmp": 1, "passing_yds": 11, "passing_incmp": 1}
	if !reflect.DeepEqual(b.Stats, want) {
		t.Errorf("stats: want %v, got %v", want, b.Stats)
	}
	if b.Games != 1 {
		t.Errorf("games: want 1, got %d", b.Games)
	}
	if b.Home != model.SideAway || b.Name != "T.Brady" {
		t.Errorf("attributes: want T.Brady away, got %q %s", b.Name, b.Home)
	}
	// Snapshot stats must not be touched.
	if s.Drives[0].Plays[0].Stats[brady]["passing_att"] != 1 {
		t.Error("PlayStats mutated the snapshot")
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"sum": Sum, "MAX": Max, "": Sum} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q): want %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParsePolicy("avg"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
