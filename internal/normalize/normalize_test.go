package normalize

import (
	"testing"

	"github.com/pable/nflfeed/internal/model"
)

func basePlay() model.Play {
	return model.Play{
		ID:        "36",
		Team:      "NE",
		Quarter:   2,
		Clock:     "14:56",
		Down:      1,
		YardsToGo: 10,
		YardLine:  "NE 20",
		Desc:      "(14:56) T.Brady pass short right to W.Welker to NE 31 for 11 yards.",
		Stats: map[string]map[string]float64{
			"00-0019596": {"passing_att": 1, "passing_cmp": 1, "passing_yds": 11},
		},
	}
}

func TestKeyOf_Deterministic(t *testing.T) {
	p := basePlay()
	first := KeyOf(p)
	for i := 0; i < 50; i++ {
		if got := KeyOf(p); got != first {
			t.Fatalf("call %d: key changed: want %s, got %s", i, first, got)
		}
	}
}

func TestKeyOf_IgnoresRawID(t *testing.T) {
	a := basePlay()
	b := basePlay()
	b.ID = "4127"
	if KeyOf(a) != KeyOf(b) {
		t.Error("plays differing only in raw id must share a key")
	}
}

func TestKeyOf_IgnoresStats(t *testing.T) {
	a := basePlay()
	b := basePlay()
	b.Stats["00-0022924"] = map[string]float64{"penalty": 1, "penalty_yds": 5}
	if KeyOf(a) != KeyOf(b) {
		t.Error("stat deltas must not participate in the key")
	}
}

func TestKeyOf_DescriptionNormalization(t *testing.T) {
	a := basePlay()
	b := basePlay()
	b.Desc = "  t.brady PASS short right, to W.Welker to NE 31 for 11 yards "
	if KeyOf(a) != KeyOf(b) {
		t.Errorf("descriptions should normalize equal: %q vs %q", Description(a.Desc), Description(b.Desc))
	}
}

func TestKeyOf_ClockFormats(t *testing.T) {
	a := basePlay()
	a.Clock = "05:07"
	b := basePlay()
	b.Clock = "5:07"
	if KeyOf(a) != KeyOf(b) {
		t.Error("05:07 and 5:07 are the same time remaining")
	}
}

func TestKeyOf_DistinguishesContent(t *testing.T) {
	base := basePlay()
	mutations := map[string]func(p *model.Play){
		"quarter":  func(p *model.Play) { p.Quarter = 3 },
		"clock":    func(p *model.Play) { p.Clock = "14:50" },
		"down":     func(p *model.Play) { p.Down = 2 },
		"distance": func(p *model.Play) { p.YardsToGo = 7 },
		"desc":     func(p *model.Play) { p.Desc = "T.Brady sacked at NE 12 for -8 yards" },
	}
	for name, mutate := range mutations {
		p := basePlay()
		mutate(&p)
		if KeyOf(p) == KeyOf(base) {
			t.Errorf("%s: expected a different key", name)
		}
	}
}

func TestDescription(t *testing.T) {
	cases := []struct{ in, want string }{
		{"(14:56) T.Brady pass", "t brady pass"},
		{"(:45) Timeout #1 by NE.", "timeout 1 by ne"},
		{"END QUARTER 1", "end quarter 1"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Description(c.in); got != c.want {
			t.Errorf("Description(%q): want %q, got %q", c.in, c.want, got)
		}
	}
}

func TestClockSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"15:00", 900, true},
		{"5:07", 307, true},
		{":45", 45, true},
		{"00:00", 0, true},
		{"", 0, false},
		{"12", 0, false},
		{"1:5", 0, false},
		{"ab:cd", 0, false},
	}
	for _, c := range cases {
		got, ok := ClockSeconds(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("ClockSeconds(%q): want (%d, %v), got (%d, %v)", c.in, c.want, c.ok, got, ok)
		}
	}
}

func TestContentKey_IgnoresQuarter(t *testing.T) {
	a := basePlay()
	b := basePlay()
	b.Quarter = 3
	if KeyOf(a) == KeyOf(b) {
		t.Error("KeyOf must distinguish quarters")
	}
	if ContentKey(a) != ContentKey(b) {
		t.Error("ContentKey must ignore the quarter")
	}
	b.Down = 2
	if ContentKey(a) == ContentKey(b) {
		t.Error("ContentKey must still distinguish down")
	}
}
