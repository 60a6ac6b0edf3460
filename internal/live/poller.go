// Package live polls the games of the current week and reports what changed
// on every tick.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pable/nflfeed/internal/aggregator"
	"github.com/pable/nflfeed/internal/diff"
	"github.com/pable/nflfeed/internal/gamecenter"
	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/phase"
)

var (
	// ErrAlreadyStarted is returned by Start on a poller that is not idle.
	ErrAlreadyStarted = errors.New("poller already started")
	// ErrStopped is returned by Start when Stop ran while it was loading.
	ErrStopped = errors.New("poller stopped")
)

// staleGrace is how long past MaxGameTime an unfinished game stays tracked.
const staleGrace = 2 * time.Hour

// State is the poller lifecycle: Idle, then Polling, then Stopped.
type State int

const (
	Idle State = iota
	Polling
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Status is the outcome of one game's fetch within a tick.
type Status string

const (
	StatusOK          Status = "ok"
	StatusPending     Status = "pending"      // feed has no data yet
	StatusTimeout     Status = "timeout"      // fetch abandoned this tick
	StatusFetchFailed Status = "fetch_failed" // retries exhausted
	StatusMalformed   Status = "malformed"    // previous snapshot kept
)

// Update is what a tick reports.
type Update struct {
	TickID    uuid.UUID
	At        time.Time
	Phase     phase.Result
	Active    []string                   // games still tracked after the tick
	Completed []string                   // games that finished this tick
	Diffs     []model.GameDiff           // non-empty diffs, by game id
	Snapshots map[string]*model.Snapshot // copies of this tick's snapshots
	Status    map[string]Status
}

// Callback receives each tick's update. It runs on the poller's goroutine;
// the next tick starts only after it returns. Calling stop ends the loop once
// the callback returns and does not wait; Poller.Stop must not be called from
// inside the callback.
type Callback func(u Update, stop func())

// Inferencer resolves the current week and exposes its schedule.
type Inferencer interface {
	Refresh(ctx context.Context) error
	Current(ctx context.Context, now time.Time) (phase.Result, error)
	Schedule() *phase.Schedule
}

// Store records completed games.
type Store interface {
	SaveCompleted(g model.StoredGame, s *model.Snapshot, stats []model.ParticipantStats) (bool, error)
	CompletedExists(gameID string) (bool, error)
}

// Options tunes a Poller. Zero values take defaults.
type Options struct {
	Workers        int           // concurrent fetches; default 8
	FetchTimeout   time.Duration // per game, retries included; default 20s
	MaxAttempts    int           // per game per tick; default 3
	InitialBackoff time.Duration // default 500ms
	MaxBackoff     time.Duration // default 5s
	Lookahead      time.Duration // activate games this long before kickoff; default 15m
	MaxGameTime    time.Duration // unfinished games stay active this long after kickoff; default 6h
	IdleInterval   time.Duration // wait between ticks with nothing to track; default: the poll interval
	Logger         *slog.Logger
	Now            func() time.Time
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 20 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Second
	}
	if o.Lookahead <= 0 {
		o.Lookahead = 15 * time.Minute
	}
	if o.MaxGameTime <= 0 {
		o.MaxGameTime = 6 * time.Hour
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Poller drives the live loop. The zero value is not usable; call New.
type Poller struct {
	src   gamecenter.Source
	inf   Inferencer
	store Store // may be nil
	opts  Options
	log   *slog.Logger

	mu       sync.Mutex
	state    State
	starting bool
	cancel   context.CancelFunc
	done     chan struct{}

	// Owned by whichever goroutine holds tickMu.
	tickMu    sync.Mutex
	phase     phase.Result
	tracked   map[string]phase.Game
	last      map[string]*model.Snapshot
	completed map[string]bool
	unsaved   map[string]*model.Snapshot
}

// New returns an idle poller.
func New(src gamecenter.Source, inf Inferencer, store Store, opts Options) *Poller {
	opts.normalize()
	return &Poller{
		src:       src,
		inf:       inf,
		store:     store,
		opts:      opts,
		log:       opts.Logger.With("component", "live"),
		tracked:   make(map[string]phase.Game),
		last:      make(map[string]*model.Snapshot),
		completed: make(map[string]bool),
		unsaved:   make(map[string]*model.Snapshot),
	}
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start loads the schedule, records games that are already final, and starts
// the loop: one Tick and one callback per interval. It fails with
// ErrAlreadyStarted unless the poller is idle, and with an error wrapping
// model.ErrScheduleUnavailable when no schedule can be loaded at all.
// Cancelling ctx stops the loop like Stop.
func (p *Poller) Start(ctx context.Context, interval time.Duration, cb Callback) error {
	if interval <= 0 {
		return fmt.Errorf("start poller: interval must be positive, got %s", interval)
	}
	p.mu.Lock()
	if p.state != Idle || p.starting {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.starting = true
	p.mu.Unlock()

	err := p.load(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.starting = false
	switch {
	case err != nil:
		return err
	case p.state == Stopped:
		return ErrStopped
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.state = Polling
	go p.loop(loopCtx, interval, cb, p.done)
	p.log.Info("poller started", "interval", interval)
	return nil
}

// load refreshes the schedule and runs the initial pass. It holds no state
// lock, so State and Stop stay responsive during network calls.
func (p *Poller) load(ctx context.Context) error {
	if err := p.inf.Refresh(ctx); err != nil {
		if p.inf.Schedule() == nil {
			return fmt.Errorf("start poller: %w", model.ErrScheduleUnavailable)
		}
		p.log.Warn("schedule refresh failed; using loaded schedule", "error", err)
	}
	p.initialPass(ctx)
	return nil
}

// Stop ends the loop and waits for an in-flight tick and callback to finish.
// No callback starts after Stop returns. From inside the callback use the
// stop func it receives instead.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state == Polling {
		p.cancel()
	}
	first := p.state != Stopped
	p.state = Stopped
	done := p.done
	p.mu.Unlock()

	if done != nil {
		<-done
	}
	if first {
		p.log.Info("poller stopped")
	}
}

// stopAsync is the stop func handed to callbacks.
func (p *Poller) stopAsync() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Polling {
		p.state = Stopped
		p.cancel()
		p.log.Info("poller stopped from callback")
	}
}

func (p *Poller) loop(ctx context.Context, interval time.Duration, cb Callback, done chan struct{}) {
	defer close(done)
	defer func() {
		p.mu.Lock()
		p.state = Stopped
		p.mu.Unlock()
	}()

	for {
		u := p.Tick(ctx)

		p.mu.Lock()
		stopped := p.state != Polling || ctx.Err() != nil
		p.mu.Unlock()
		if stopped {
			return
		}

		cb(u, p.stopAsync)

		if p.State() != Polling {
			return
		}

		wait := interval
		if len(u.Active) == 0 && p.opts.IdleInterval > wait {
			wait = p.opts.IdleInterval
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Tick runs one poll cycle and returns its update without invoking any
// callback. Ticks never overlap.
func (p *Poller) Tick(ctx context.Context) Update {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	now := p.opts.Now()
	u := Update{
		TickID:    uuid.New(),
		At:        now,
		Snapshots: make(map[string]*model.Snapshot),
		Status:    make(map[string]Status),
	}

	if res, err := p.inf.Current(ctx, now); err != nil {
		p.log.Warn("phase inference failed; keeping last phase", "error", err, "phase", p.phase.String())
	} else {
		p.phase = res
	}
	u.Phase = p.phase

	p.retryUnsaved()
	p.activate(now)

	ids := p.trackedIDs()
	results := p.fetchAll(ctx, ids)
	for i, id := range ids {
		r := results[i]
		u.Status[id] = r.status
		if r.status != StatusOK {
			if r.err != nil {
				p.log.Warn("game fetch failed", "game_id", id, "status", string(r.status), "error", r.err)
			}
			u.Active = append(u.Active, id)
			continue
		}

		d := diff.Compute(p.last[id], r.snap)
		if !d.Empty() {
			u.Diffs = append(u.Diffs, d)
		}
		u.Snapshots[id] = r.snap.Clone()

		if r.snap.Completed {
			p.complete(id, r.snap)
			u.Completed = append(u.Completed, id)
			continue
		}
		p.last[id] = r.snap
		u.Active = append(u.Active, id)
	}

	p.log.Debug("tick complete", "tick_id", u.TickID.String(), "phase", u.Phase.String(),
		"active", len(u.Active), "completed", len(u.Completed), "diffs", len(u.Diffs))
	return u
}

// activate adds this week's games that are inside the active window and
// drops tracked games that never finished long after kickoff.
func (p *Poller) activate(now time.Time) {
	for id, g := range p.tracked {
		if now.Sub(g.Kickoff) > p.opts.MaxGameTime+staleGrace {
			p.log.Warn("game never finished; no longer tracked", "game_id", id, "kickoff", g.Kickoff)
			delete(p.tracked, id)
			delete(p.last, id)
		}
	}

	sched := p.inf.Schedule()
	for _, g := range sched.GamesInWeek(p.phase.Year, p.phase.Phase, p.phase.Week) {
		if p.completed[g.ID] {
			continue
		}
		if _, ok := p.tracked[g.ID]; ok {
			continue
		}
		if !p.inWindow(g, now) {
			continue
		}
		if p.storedComplete(g.ID) {
			continue
		}
		p.tracked[g.ID] = g
	}
}

func (p *Poller) inWindow(g phase.Game, now time.Time) bool {
	if g.Kickoff.After(now) {
		return g.Kickoff.Sub(now) <= p.opts.Lookahead
	}
	return now.Sub(g.Kickoff) <= p.opts.MaxGameTime
}

func (p *Poller) storedComplete(id string) bool {
	if p.store == nil {
		return false
	}
	ok, err := p.store.CompletedExists(id)
	if err != nil {
		p.log.Warn("completed lookup failed", "game_id", id, "error", err)
		return false
	}
	if ok {
		p.completed[id] = true
	}
	return ok
}

func (p *Poller) trackedIDs() []string {
	ids := make([]string, 0, len(p.tracked))
	for id := range p.tracked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// complete stops tracking a finished game and persists it.
func (p *Poller) complete(id string, s *model.Snapshot) {
	p.completed[id] = true
	delete(p.last, id)
	p.unsaved[id] = s
	p.save(id)
	delete(p.tracked, id)
}

func (p *Poller) retryUnsaved() {
	for id := range p.unsaved {
		p.save(id)
	}
}

// save writes a completed game once; a failed write is retried next tick
// without fetching the game again.
func (p *Poller) save(id string) {
	s := p.unsaved[id]
	if p.store == nil || s == nil {
		delete(p.unsaved, id)
		return
	}
	g := model.StoredGame{
		GameID:      id,
		Home:        s.Home.Abbr,
		Away:        s.Away.Abbr,
		HomeScore:   s.Home.Score,
		AwayScore:   s.Away.Score,
		SeasonYear:  p.phase.Year,
		Phase:       p.phase.Phase,
		Week:        p.phase.Week,
		CompletedAt: p.opts.Now().UTC(),
	}
	if sg, ok := p.tracked[id]; ok {
		g.SeasonYear, g.Phase, g.Week = sg.Year, sg.Phase, sg.Week
	}
	stats := aggregator.Reconcile(s.Players, aggregator.PlayStats(s))
	inserted, err := p.store.SaveCompleted(g, s, stats)
	if err != nil {
		p.log.Error("save completed game failed", "game_id", id, "error", err)
		return
	}
	delete(p.unsaved, id)
	p.log.Info("game completed", "game_id", id, "score", fmt.Sprintf("%s %d - %s %d", g.Away, g.AwayScore, g.Home, g.HomeScore), "inserted", inserted)
}

// initialPass records games of the current week that are already final so
// they are never reported.
func (p *Poller) initialPass(ctx context.Context) {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	now := p.opts.Now()
	res, err := p.inf.Current(ctx, now)
	if err != nil {
		p.log.Warn("initial phase inference failed", "error", err)
		return
	}
	p.phase = res

	var candidates []phase.Game
	for _, g := range p.inf.Schedule().GamesInWeek(res.Year, res.Phase, res.Week) {
		if p.storedComplete(g.ID) || !p.inWindow(g, now) && g.Kickoff.After(now) {
			continue
		}
		candidates = append(candidates, g)
	}
	ids := make([]string, len(candidates))
	for i, g := range candidates {
		ids[i] = g.ID
	}

	results := p.fetchAll(ctx, ids)
	for i, g := range candidates {
		if r := results[i]; r.status == StatusOK && r.snap.Completed {
			p.tracked[g.ID] = g
			p.complete(g.ID, r.snap)
		}
	}
	p.log.Info("initial pass", "phase", res.String(), "games", len(ids), "already_final", len(p.completed))
}
