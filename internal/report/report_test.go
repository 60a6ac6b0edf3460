package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pable/nflfeed/internal/live"
	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/phase"
)

func TestStatColumns(t *testing.T) {
	stats := []model.ParticipantStats{
		{ID: "a", Stats: map[string]float64{"rushing_att": 3, "rushing_yds": 12}},
		{ID: "b", Stats: map[string]float64{"rushing_att": 1, "defense_sk": 0.5}},
	}
	got := StatColumns(stats)
	want := []string{"rushing_att", "defense_sk", "rushing_yds"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestFormatStat(t *testing.T) {
	cases := map[float64]string{12: "12", 0.5: "0.5", -3: "-3", 1.25: "1.2"}
	for in, want := range cases {
		if got := formatStat(in); got != want {
			t.Errorf("formatStat(%v): want %s, got %s", in, want, got)
		}
	}
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	PrintStats(&buf, []model.ParticipantStats{
		{ID: "00-0027939", Name: "C.Spiller", Team: "BUF", Games: 1, Stats: map[string]float64{"rushing_yds": 103}},
		{ID: "00-0029263", Name: "R.Wilson", Team: "SEA", Games: 1, Stats: map[string]float64{"defense_sk": 0.5}},
	}, []string{"rushing_yds", "defense_sk"})

	out := buf.String()
	for _, want := range []string{"C.Spiller", "103", "R.Wilson", "0.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("J.Spiller up the middle", 10); got != "J.Spil..." {
		t.Errorf("got %q", got)
	}
}

func TestWriteUpdateJSON(t *testing.T) {
	u := live.Update{
		TickID: uuid.New(),
		At:     time.Date(2013, 9, 15, 18, 0, 0, 0, time.UTC),
		Phase:  phase.Result{Year: 2013, Phase: model.PhaseReg, Week: 2},
		Active: []string{"2013091500"},
		Status: map[string]live.Status{"2013091500": live.StatusOK},
		Diffs: []model.GameDiff{{GameID: "2013091500", Changes: []model.PlayChange{
			{Kind: model.ChangeAdded, Key: "1|15:00|BUF|kickoff", Play: model.Play{Quarter: 1, Desc: "kickoff"}},
		}}},
	}

	var buf bytes.Buffer
	if err := WriteUpdateJSON(&buf, u); err != nil {
		t.Fatalf("WriteUpdateJSON: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Fatalf("want one line, got %d", n)
	}

	var got struct {
		TickID string           `json:"tick_id"`
		At     string           `json:"at"`
		Phase  string           `json:"phase"`
		Diffs  []model.GameDiff `json:"diffs"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TickID != u.TickID.String() || got.At != "2013-09-15T18:00:00Z" {
		t.Errorf("got tick %s at %s", got.TickID, got.At)
	}
	if got.Phase != "2013 REG week 2" {
		t.Errorf("phase: got %q", got.Phase)
	}
	if len(got.Diffs) != 1 || got.Diffs[0].Changes[0].Play.Desc != "kickoff" {
		t.Errorf("diffs: got %+v", got.Diffs)
	}
}

func TestIsTerminal_NonFile(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}
