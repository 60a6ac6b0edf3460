package statmap

import (
	"reflect"
	"testing"

	"github.com/pable/nflfeed/internal/model"
)

func TestValues(t *testing.T) {
	cases := []struct {
		id    int
		yards float64
		want  map[string]float64
	}{
		{10, 7, map[string]float64{"rushing_att": 1, "rushing_yds": 7}},
		{15, 11, map[string]float64{"passing_att": 1, "passing_cmp": 1, "passing_yds": 11}},
		{14, 0, map[string]float64{"passing_att": 1, "passing_incmp": 1}},
		{84, -4, map[string]float64{"defense_sk": 0.5, "defense_sk_yds": -4}},
		{93, 15, map[string]float64{"penalty": 1, "penalty_yds": 15}},
		{113, 6, map[string]float64{"receiving_yac_yds": 6}},
	}
	for _, c := range cases {
		got, err := Values(c.id, c.yards)
		if err != nil {
			t.Fatalf("Values(%d): %v", c.id, err)
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("Values(%d, %v): want %v, got %v", c.id, c.yards, c.want, got)
		}
	}
}

func TestValues_UnknownID(t *testing.T) {
	if _, err := Values(9999, 0); err == nil {
		t.Error("expected error for unknown stat id")
	}
}

func TestLookup_Categories(t *testing.T) {
	if en, ok := Lookup(21); !ok || en.Category != "receiving" {
		t.Errorf("21: want receiving, got %+v (%v)", en, ok)
	}
}

func TestValues_OneTouchdownPerScoringEvent(t *testing.T) {
	for _, id := range []int{11, 13, 16, 22, 24, 26, 28, 34, 36, 46, 48, 56, 58, 60, 62, 64, 108} {
		vals, err := Values(id, 0)
		if err != nil {
			t.Fatalf("Values(%d): %v", id, err)
		}
		p := model.ParticipantStats{Stats: vals}
		if got := p.Touchdowns(); got != 1 {
			t.Errorf("stat %d: want 1 touchdown, got %v (%v)", id, got, vals)
		}
	}
}

func TestValues_NonScoringEventHasNoTouchdown(t *testing.T) {
	for _, id := range []int{10, 15, 21, 25, 45, 57, 59, 63} {
		vals, err := Values(id, 0)
		if err != nil {
			t.Fatalf("Values(%d): %v", id, err)
		}
		p := model.ParticipantStats{Stats: vals}
		if got := p.Touchdowns(); got != 0 {
			t.Errorf("stat %d: want 0 touchdowns, got %v (%v)", id, got, vals)
		}
	}
}
