package publish

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pable/nflfeed/internal/live"
	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/phase"
)

func TestEntries(t *testing.T) {
	tick := uuid.New()
	u := live.Update{
		TickID: tick,
		At:     time.Date(2013, 9, 15, 20, 0, 0, 0, time.UTC),
		Phase:  phase.Result{Year: 2013, Phase: model.PhaseReg, Week: 2},
		Diffs: []model.GameDiff{{
			GameID: "2013091501",
			Changes: []model.PlayChange{
				{Kind: model.ChangeAdded, Key: "k1", Play: model.Play{Quarter: 4, Clock: "00:12", Desc: "T.Brady kneels"}},
			},
		}},
		Completed: []string{"2013091500", "2013091599"},
		Snapshots: map[string]*model.Snapshot{
			"2013091500": {
				GameID: "2013091500",
				Home:   model.TeamScore{Abbr: "BUF", Score: 24},
				Away:   model.TeamScore{Abbr: "CAR", Score: 23},
			},
		},
	}

	entries, err := Entries(u)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries (completion without snapshot skipped), got %d", len(entries))
	}

	d := entries[0]
	if d["type"] != TypeDiff || d["game_id"] != "2013091501" || d["changes"] != "1" {
		t.Errorf("diff entry: got %v", d)
	}
	if d["tick_id"] != tick.String() {
		t.Errorf("tick id: want %s, got %v", tick, d["tick_id"])
	}
	var diff model.GameDiff
	if err := json.Unmarshal([]byte(d["data"].(string)), &diff); err != nil {
		t.Fatalf("decode diff data: %v", err)
	}
	if len(diff.Changes) != 1 || diff.Changes[0].Play.Desc != "T.Brady kneels" {
		t.Errorf("diff data: got %+v", diff)
	}

	c := entries[1]
	if c["type"] != TypeCompleted || c["game_id"] != "2013091500" {
		t.Errorf("completed entry: got %v", c)
	}
	var ev completedEvent
	if err := json.Unmarshal([]byte(c["data"].(string)), &ev); err != nil {
		t.Fatalf("decode completion data: %v", err)
	}
	if ev.Winner != "BUF" || ev.Home.Score != 24 {
		t.Errorf("completion data: got %+v", ev)
	}
}

func TestEntries_Empty(t *testing.T) {
	entries, err := Entries(live.Update{})
	if err != nil || len(entries) != 0 {
		t.Errorf("want no entries, got %v (%v)", entries, err)
	}
}
