package phase

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // America/New_York on hosts without zoneinfo

	"github.com/tidwall/gjson"

	"github.com/pable/nflfeed/internal/model"
)

var eastern = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load location %s: %v", name, err))
	}
	return loc
}

// FileProvider reads a schedule.json file:
//
//	{"time": 1379246400, "games": [["2013091500", {"eid": "2013091500",
//	  "year": 2013, "month": 9, "day": 15, "time": "1:00", "wday": "Sun",
//	  "season_type": "REG", "week": 2, "home": "BUF", "away": "CAR",
//	  "gamekey": "55839"}], ...]}
//
// The file is re-read on every call so an external updater can replace it.
type FileProvider struct {
	Path string
}

// Schedule implements Provider.
func (p FileProvider) Schedule(ctx context.Context) (*Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read schedule %s: %w", p.Path, err)
	}
	return ParseSchedule(data)
}

// ParseSchedule decodes schedule.json content. Kickoff times are "H:MM" in
// US/Eastern and always afternoon or evening.
func ParseSchedule(data []byte) (*Schedule, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse schedule: invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	s := &Schedule{}
	if ts := doc.Get("time"); ts.Exists() {
		s.UpdatedAt = time.Unix(ts.Int(), 0).UTC()
	}

	var errs []string
	doc.Get("games").ForEach(func(_, entry gjson.Result) bool {
		info := entry.Get("1")
		g, err := parseGame(entry.Get("0").String(), info)
		if err != nil {
			errs = append(errs, err.Error())
			return true
		}
		s.Games = append(s.Games, g)
		return true
	})
	if len(s.Games) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("parse schedule: %s", strings.Join(errs, "; "))
	}
	s.Weeks = BuildWeeks(s.Games)
	return s, nil
}

func parseGame(eid string, info gjson.Result) (Game, error) {
	if eid == "" {
		eid = info.Get("eid").String()
	}
	if len(eid) < 8 {
		return Game{}, fmt.Errorf("game %q: bad eid", eid)
	}
	ph, ok := model.ParsePhase(info.Get("season_type").String())
	if !ok {
		return Game{}, fmt.Errorf("game %s: unknown season type %q", eid, info.Get("season_type").String())
	}
	kickoff, err := kickoffTime(eid, int(info.Get("month").Int()), int(info.Get("day").Int()), info.Get("time").String())
	if err != nil {
		return Game{}, fmt.Errorf("game %s: %w", eid, err)
	}
	year := int(info.Get("year").Int())
	if year == 0 {
		year = SeasonYear(kickoff.In(eastern))
	}
	return Game{
		ID:      eid,
		Year:    year,
		Phase:   ph,
		Week:    int(info.Get("week").Int()),
		Home:    info.Get("home").String(),
		Away:    info.Get("away").String(),
		Kickoff: kickoff,
	}, nil
}

// kickoffTime builds the UTC kickoff from the eid's calendar year, the month
// and day, and a 12-hour "H:MM" assumed PM Eastern ("12:30" is half past noon).
func kickoffTime(eid string, month, day int, hm string) (time.Time, error) {
	calYear, err := strconv.Atoi(eid[:4])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad eid year: %w", err)
	}
	if month == 0 || day == 0 {
		month, _ = strconv.Atoi(eid[4:6])
		day, _ = strconv.Atoi(eid[6:8])
	}
	h, m, ok := strings.Cut(strings.TrimSpace(hm), ":")
	if !ok {
		return time.Time{}, fmt.Errorf("bad kickoff time %q", hm)
	}
	hour, err1 := strconv.Atoi(h)
	minute, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hour < 0 || hour > 12 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("bad kickoff time %q", hm)
	}
	local := time.Date(calYear, time.Month(month), day, hour%12+12, minute, 0, 0, eastern)
	return local.UTC(), nil
}

// Static is a Provider serving a fixed schedule.
type Static struct {
	S *Schedule
}

// Schedule implements Provider.
func (p Static) Schedule(context.Context) (*Schedule, error) {
	if p.S == nil {
		return nil, model.ErrScheduleUnavailable
	}
	return p.S, nil
}
