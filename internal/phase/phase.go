// Package phase infers which season phase and week is in effect for a date.
package phase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pable/nflfeed/internal/model"
)

// Week is one scheduled week, covering [Start, End).
type Week struct {
	Year   int // season year
	Phase  model.Phase
	Number int
	Start  time.Time
	End    time.Time
}

// Contains reports whether t falls inside the week.
func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Game is one scheduled game.
type Game struct {
	ID      string // GSIS id, e.g. "2013091500"
	Year    int    // season year
	Phase   model.Phase
	Week    int
	Home    string
	Away    string
	Kickoff time.Time
}

// Schedule is the season calendar the inferencer works from.
type Schedule struct {
	Weeks     []Week
	Games     []Game
	UpdatedAt time.Time
}

// Result is an inferred (year, phase, week).
type Result struct {
	Year          int
	Phase         model.Phase
	Week          int
	LowConfidence bool // no week contained the date; nearest week used
}

func (r Result) String() string {
	s := fmt.Sprintf("%d %s week %d", r.Year, r.Phase, r.Week)
	if r.LowConfidence {
		s += " (low confidence)"
	}
	return s
}

// SeasonYear returns the year the season containing t began. Games played in
// January and February belong to the previous calendar year's season.
func SeasonYear(t time.Time) int {
	if t.Month() <= time.February {
		return t.Year() - 1
	}
	return t.Year()
}

// Infer resolves the week containing date. When no week of the date's season
// contains it, the nearest preceding week is returned with LowConfidence set,
// or the earliest known week if none precedes. It fails only when the schedule
// has no weeks at all.
func (s *Schedule) Infer(date time.Time) (Result, error) {
	if s == nil || len(s.Weeks) == 0 {
		return Result{}, model.ErrScheduleUnavailable
	}
	year := SeasonYear(date)

	var found *Week
	for i := range s.Weeks {
		w := &s.Weeks[i]
		if w.Year != year || !w.Contains(date) {
			continue
		}
		if found == nil || laterWeek(*w, *found) {
			found = w
		}
	}
	if found != nil {
		return Result{Year: found.Year, Phase: found.Phase, Week: found.Number}, nil
	}

	var nearest, earliest *Week
	for i := range s.Weeks {
		w := &s.Weeks[i]
		if earliest == nil || laterWeek(*earliest, *w) {
			earliest = w
		}
		if w.Start.After(date) {
			continue
		}
		if nearest == nil || laterWeek(*w, *nearest) {
			nearest = w
		}
	}
	if nearest == nil {
		nearest = earliest
	}
	return Result{Year: nearest.Year, Phase: nearest.Phase, Week: nearest.Number, LowConfidence: true}, nil
}

// GamesInWeek returns the games scheduled in the given week, by kickoff.
func (s *Schedule) GamesInWeek(year int, p model.Phase, week int) []Game {
	if s == nil {
		return nil
	}
	var out []Game
	for _, g := range s.Games {
		if g.Year == year && g.Phase == p && g.Week == week {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Kickoff.Equal(out[j].Kickoff) {
			return out[i].Kickoff.Before(out[j].Kickoff)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Game returns the scheduled game with the given id.
func (s *Schedule) Game(id string) (Game, bool) {
	if s == nil {
		return Game{}, false
	}
	for _, g := range s.Games {
		if g.ID == id {
			return g, true
		}
	}
	return Game{}, false
}

var phaseRank = map[model.Phase]int{model.PhasePre: 0, model.PhaseReg: 1, model.PhasePost: 2}

// laterWeek orders weeks by start, then season position.
func laterWeek(a, b Week) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.After(b.Start)
	}
	if a.Year != b.Year {
		return a.Year > b.Year
	}
	if phaseRank[a.Phase] != phaseRank[b.Phase] {
		return phaseRank[a.Phase] > phaseRank[b.Phase]
	}
	return a.Number > b.Number
}

// BuildWeeks derives week ranges from game kickoffs. A week runs from the
// Wednesday 07:00 UTC at or before its first kickoff for seven days.
func BuildWeeks(games []Game) []Week {
	type wk struct {
		year   int
		phase  model.Phase
		number int
	}
	first := make(map[wk]time.Time)
	for _, g := range games {
		k := wk{g.Year, g.Phase, g.Week}
		if t, ok := first[k]; !ok || g.Kickoff.Before(t) {
			first[k] = g.Kickoff
		}
	}
	weeks := make([]Week, 0, len(first))
	for k, kickoff := range first {
		start := weekStart(kickoff)
		weeks = append(weeks, Week{
			Year: k.year, Phase: k.phase, Number: k.number,
			Start: start, End: start.Add(7 * 24 * time.Hour),
		})
	}
	sort.Slice(weeks, func(i, j int) bool { return laterWeek(weeks[j], weeks[i]) })
	return weeks
}

func weekStart(t time.Time) time.Time {
	t = t.UTC()
	back := (int(t.Weekday()) - int(time.Wednesday) + 7) % 7
	d := time.Date(t.Year(), t.Month(), t.Day()-back, 7, 0, 0, 0, time.UTC)
	if d.After(t) {
		d = d.AddDate(0, 0, -7)
	}
	return d
}

// ---- Inferencer ----

// Provider loads schedule data.
type Provider interface {
	Schedule(ctx context.Context) (*Schedule, error)
}

// Options configures an Inferencer.
type Options struct {
	RefreshTimeout time.Duration // bound on one Provider call; default 10s
	RefreshEvery   time.Duration // schedule staleness; default 12h
	Logger         *slog.Logger
}

func (o *Options) normalize() {
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = 10 * time.Second
	}
	if o.RefreshEvery <= 0 {
		o.RefreshEvery = 12 * time.Hour
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Inferencer holds the schedule and the last inferred phase. It is safe for
// concurrent use.
type Inferencer struct {
	provider Provider
	opts     Options

	mu       sync.Mutex
	sched    *Schedule
	loadedAt time.Time
	last     *Result
}

// New returns an Inferencer with no schedule loaded.
func New(p Provider, opts Options) *Inferencer {
	opts.normalize()
	return &Inferencer{provider: p, opts: opts}
}

// Refresh reloads the schedule. On failure the previous schedule and last
// phase are kept and the error is returned. Refresh returns once the timeout
// or ctx expires even if the provider ignores ctx; the provider call then
// finishes in the background and its result is discarded.
func (in *Inferencer) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, in.opts.RefreshTimeout)
	defer cancel()

	type loaded struct {
		s   *Schedule
		err error
	}
	ch := make(chan loaded, 1)
	go func() {
		s, err := in.provider.Schedule(ctx)
		ch <- loaded{s, err}
	}()

	var s *Schedule
	var err error
	select {
	case r := <-ch:
		s, err = r.s, r.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil && (s == nil || len(s.Weeks) == 0) {
		err = model.ErrScheduleUnavailable
	}
	if err != nil {
		in.opts.Logger.Warn("schedule refresh failed", "error", err)
		return fmt.Errorf("refresh schedule: %w", err)
	}

	in.mu.Lock()
	in.sched = s
	in.loadedAt = time.Now()
	in.mu.Unlock()
	in.opts.Logger.Debug("schedule refreshed", "weeks", len(s.Weeks), "games", len(s.Games))
	return nil
}

// Infer resolves date against the loaded schedule and records the result.
func (in *Inferencer) Infer(date time.Time) (Result, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	r, err := in.sched.Infer(date)
	if err != nil {
		return Result{}, err
	}
	in.last = &r
	return r, nil
}

// Current refreshes the schedule when it is stale and infers the phase for
// now. A failed refresh falls back to the schedule already held; when no
// inference is possible the last known phase is returned.
func (in *Inferencer) Current(ctx context.Context, now time.Time) (Result, error) {
	in.mu.Lock()
	stale := in.sched == nil || time.Since(in.loadedAt) >= in.opts.RefreshEvery
	in.mu.Unlock()
	if stale {
		_ = in.Refresh(ctx) // logged; the held schedule is still usable
	}

	r, err := in.Infer(now)
	if err == nil {
		return r, nil
	}
	if last, ok := in.Last(); ok {
		return last, nil
	}
	return Result{}, err
}

// Last returns the most recent successful inference.
func (in *Inferencer) Last() (Result, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.last == nil {
		return Result{}, false
	}
	return *in.last, true
}

// Schedule returns the loaded schedule, or nil. Callers must not modify it.
func (in *Inferencer) Schedule() *Schedule {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.sched
}
