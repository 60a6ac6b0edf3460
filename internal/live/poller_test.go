package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pable/nflfeed/internal/gamecenter"
	"github.com/pable/nflfeed/internal/model"
	"github.com/pable/nflfeed/internal/phase"
)

var now = time.Date(2013, 9, 15, 18, 0, 0, 0, time.UTC)

// fakeSource serves canned results per game and counts calls.
type fakeSource struct {
	mu    sync.Mutex
	snaps map[string]*model.Snapshot
	errs  map[string]error
	block map[string]bool
	calls map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		snaps: map[string]*model.Snapshot{},
		errs:  map[string]error{},
		block: map[string]bool{},
		calls: map[string]int{},
	}
}

func (f *fakeSource) set(id string, s *model.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[id] = s
	delete(f.errs, id)
}

func (f *fakeSource) fail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[id] = err
}

func (f *fakeSource) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeSource) Fetch(ctx context.Context, id string) (*model.Snapshot, error) {
	f.mu.Lock()
	f.calls[id]++
	s, err, block := f.snaps[id], f.errs[id], f.block[id]
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, gamecenter.ErrNotAvailable
	}
	return s.Clone(), nil
}

type fakeStore struct {
	mu    sync.Mutex
	saved map[string]model.StoredGame
	saves int
	fail  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: map[string]model.StoredGame{}}
}

func (s *fakeStore) SaveCompleted(g model.StoredGame, _ *model.Snapshot, _ []model.ParticipantStats) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	s.saves++
	if _, ok := s.saved[g.GameID]; ok {
		return false, nil
	}
	s.saved[g.GameID] = g
	return true, nil
}

func (s *fakeStore) CompletedExists(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.saved[id]
	return ok, nil
}

func week2() *phase.Schedule {
	games := []phase.Game{
		{ID: "2013091500", Year: 2013, Phase: model.PhaseReg, Week: 2, Home: "BUF", Away: "CAR", Kickoff: now.Add(-time.Hour)},
		{ID: "2013091501", Year: 2013, Phase: model.PhaseReg, Week: 2, Home: "NYJ", Away: "NE", Kickoff: now.Add(-2 * time.Hour)},
		{ID: "2013091502", Year: 2013, Phase: model.PhaseReg, Week: 2, Home: "SEA", Away: "SF", Kickoff: now.Add(3 * time.Hour)},
	}
	return &phase.Schedule{Games: games, Weeks: phase.BuildWeeks(games)}
}

func snapshot(id string, completed bool, descs ...string) *model.Snapshot {
	plays := make([]model.Play, len(descs))
	for i, d := range descs {
		plays[i] = model.Play{
			ID:      fmt.Sprint(i + 1),
			Team:    "BUF",
			Quarter: 1,
			Clock:   fmt.Sprintf("%02d:00", 15-i),
			Desc:    d,
			Stats:   map[string]map[string]float64{"00-0027939": {"rushing_att": 1}},
		}
	}
	s := &model.Snapshot{
		GameID:    id,
		Home:      model.TeamScore{Abbr: "BUF", Score: 7},
		Away:      model.TeamScore{Abbr: "CAR", Score: 3},
		Drives:    []model.Drive{{Number: 1, Team: "BUF", Quarter: 1, Plays: plays}},
		Completed: completed,
	}
	if completed {
		s.Clock.Quarter = "Final"
	}
	return s
}

func newTestPoller(t *testing.T, src *fakeSource, store Store, sched *phase.Schedule) *Poller {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	inf := phase.New(phase.Static{S: sched}, phase.Options{Logger: log})
	return New(src, inf, store, Options{
		Workers:        2,
		FetchTimeout:   200 * time.Millisecond,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Logger:         log,
		Now:            func() time.Time { return now },
	})
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func TestTick_DiffsThenCompletesOnce(t *testing.T) {
	src := newFakeSource()
	store := newFakeStore()
	p := newTestPoller(t, src, store, week2())

	src.set("2013091500", snapshot("2013091500", false, "J.Spiller up the middle"))
	src.fail("2013091501", gamecenter.ErrNotAvailable)

	u := p.Tick(context.Background())
	if u.Phase.Week != 2 || u.Phase.Phase != model.PhaseReg {
		t.Fatalf("phase: got %s", u.Phase)
	}
	if len(u.Active) != 2 {
		t.Fatalf("active: want 2 (future game outside lookahead excluded), got %v", u.Active)
	}
	if u.Status["2013091500"] != StatusOK || u.Status["2013091501"] != StatusPending {
		t.Errorf("status: got %v", u.Status)
	}
	if len(u.Diffs) != 1 || len(u.Diffs[0].Changes) != 1 || u.Diffs[0].Changes[0].Kind != model.ChangeAdded {
		t.Fatalf("first tick diffs: got %+v", u.Diffs)
	}

	u = p.Tick(context.Background())
	if len(u.Diffs) != 0 {
		t.Errorf("unchanged feed: want no diffs, got %+v", u.Diffs)
	}

	src.set("2013091500", snapshot("2013091500", true, "J.Spiller up the middle", "E.Manuel kneels"))
	u = p.Tick(context.Background())
	if !contains(u.Completed, "2013091500") || contains(u.Active, "2013091500") {
		t.Fatalf("completion: active=%v completed=%v", u.Active, u.Completed)
	}
	if len(u.Diffs) != 1 || len(u.Diffs[0].Changes) != 1 {
		t.Errorf("final diff: want the one new play, got %+v", u.Diffs)
	}
	if _, ok := store.saved["2013091500"]; !ok {
		t.Fatal("completed game was not persisted")
	}
	if got := store.saved["2013091500"]; got.Week != 2 || got.HomeScore != 7 {
		t.Errorf("stored game: got %+v", got)
	}

	calls := src.count("2013091500")
	for i := 0; i < 2; i++ {
		u = p.Tick(context.Background())
		if contains(u.Completed, "2013091500") || contains(u.Active, "2013091500") {
			t.Errorf("finished game reported again: %+v", u)
		}
	}
	if src.count("2013091500") != calls {
		t.Error("finished game was fetched again")
	}
	if store.saves != 1 {
		t.Errorf("saves: want 1, got %d", store.saves)
	}
}

func TestTick_SnapshotsAreCopies(t *testing.T) {
	src := newFakeSource()
	p := newTestPoller(t, src, nil, week2())
	src.set("2013091500", snapshot("2013091500", false, "J.Spiller up the middle"))

	u := p.Tick(context.Background())
	s := u.Snapshots["2013091500"]
	if s == nil {
		t.Fatal("missing snapshot")
	}
	s.Drives[0].Plays[0].Stats["00-0027939"]["rushing_att"] = 99

	u = p.Tick(context.Background())
	if len(u.Diffs) != 0 {
		t.Errorf("mutating a reported snapshot leaked into poller state: %+v", u.Diffs)
	}
}

func TestTick_Statuses(t *testing.T) {
	src := newFakeSource()
	p := newTestPoller(t, src, nil, week2())
	src.fail("2013091500", fmt.Errorf("decode: %w", model.ErrMalformedSnapshot))
	src.fail("2013091501", errors.New("connection reset"))

	u := p.Tick(context.Background())
	if u.Status["2013091500"] != StatusMalformed {
		t.Errorf("malformed: got %s", u.Status["2013091500"])
	}
	if src.count("2013091500") != 1 {
		t.Errorf("malformed documents must not be retried, got %d calls", src.count("2013091500"))
	}
	if u.Status["2013091501"] != StatusFetchFailed {
		t.Errorf("transient: got %s", u.Status["2013091501"])
	}
	if src.count("2013091501") != 3 {
		t.Errorf("transient: want 3 attempts, got %d", src.count("2013091501"))
	}
	if len(u.Active) != 2 {
		t.Errorf("failed games stay active: got %v", u.Active)
	}
}

func TestTick_TimeoutDoesNotBlockOthers(t *testing.T) {
	src := newFakeSource()
	p := newTestPoller(t, src, nil, week2())
	src.block["2013091501"] = true
	src.set("2013091500", snapshot("2013091500", false, "J.Spiller up the middle"))

	u := p.Tick(context.Background())
	if u.Status["2013091501"] != StatusTimeout {
		t.Errorf("blocked game: got %s", u.Status["2013091501"])
	}
	if u.Status["2013091500"] != StatusOK || len(u.Diffs) != 1 {
		t.Errorf("healthy game: status %s, diffs %d", u.Status["2013091500"], len(u.Diffs))
	}
}

func TestTick_RetriesFailedSaveWithoutRefetch(t *testing.T) {
	src := newFakeSource()
	store := newFakeStore()
	store.fail = errors.New("disk full")
	p := newTestPoller(t, src, store, week2())
	src.set("2013091500", snapshot("2013091500", true, "E.Manuel kneels"))

	u := p.Tick(context.Background())
	if !contains(u.Completed, "2013091500") {
		t.Fatalf("completed: got %v", u.Completed)
	}
	calls := src.count("2013091500")

	store.mu.Lock()
	store.fail = nil
	store.mu.Unlock()
	p.Tick(context.Background())
	if _, ok := store.saved["2013091500"]; !ok {
		t.Error("save was not retried")
	}
	if src.count("2013091500") != calls {
		t.Error("game fetched again after completion")
	}
}

func TestStart_NoSchedule(t *testing.T) {
	p := newTestPoller(t, newFakeSource(), nil, nil)
	err := p.Start(context.Background(), time.Second, func(Update, func()) {})
	if !errors.Is(err, model.ErrScheduleUnavailable) {
		t.Fatalf("want ErrScheduleUnavailable, got %v", err)
	}
	if p.State() != Idle {
		t.Errorf("state: want idle, got %s", p.State())
	}
}

func TestStart_AlreadyFinalNeverReported(t *testing.T) {
	src := newFakeSource()
	store := newFakeStore()
	p := newTestPoller(t, src, store, week2())
	src.set("2013091501", snapshot("2013091501", true, "T.Brady kneels"))
	src.set("2013091500", snapshot("2013091500", false, "J.Spiller up the middle"))

	updates := make(chan Update, 4)
	if err := p.Start(context.Background(), time.Hour, func(u Update, _ func()) { updates <- u }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	select {
	case u := <-updates:
		if contains(u.Completed, "2013091501") || contains(u.Active, "2013091501") {
			t.Errorf("game final before start was reported: %+v", u)
		}
		if !contains(u.Active, "2013091500") {
			t.Errorf("active: got %v", u.Active)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no tick")
	}
	if _, ok := store.saved["2013091501"]; !ok {
		t.Error("game final before start was not persisted")
	}
}

func TestStart_Twice(t *testing.T) {
	p := newTestPoller(t, newFakeSource(), nil, week2())
	if err := p.Start(context.Background(), time.Hour, func(Update, func()) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()
	if err := p.Start(context.Background(), time.Hour, func(Update, func()) {}); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start: want ErrAlreadyStarted, got %v", err)
	}
}

func TestStop_FromCallback(t *testing.T) {
	p := newTestPoller(t, newFakeSource(), nil, week2())
	var calls int
	var mu sync.Mutex
	if err := p.Start(context.Background(), time.Millisecond, func(_ Update, stop func()) {
		mu.Lock()
		calls++
		mu.Unlock()
		stop()
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after Stop inside callback")
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("callbacks: want 1, got %d", calls)
	}
	if p.State() != Stopped {
		t.Errorf("state: got %s", p.State())
	}
}

func TestStop_NoCallbackAfterReturn(t *testing.T) {
	p := newTestPoller(t, newFakeSource(), nil, week2())
	var mu sync.Mutex
	var calls int
	if err := p.Start(context.Background(), time.Millisecond, func(Update, func()) {
		mu.Lock()
		calls++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	mu.Lock()
	before := calls
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != before {
		t.Errorf("callback ran after Stop returned: %d -> %d", before, calls)
	}
	p.Stop()
}

func TestStop_WaitsForRunningCallback(t *testing.T) {
	p := newTestPoller(t, newFakeSource(), nil, week2())
	entered := make(chan struct{})
	var finished atomic.Bool
	var once sync.Once
	if err := p.Start(context.Background(), time.Hour, func(Update, func()) {
		once.Do(func() { close(entered) })
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("no callback")
	}
	p.Stop()
	if !finished.Load() {
		t.Error("Stop returned while the callback was still running")
	}
	if p.State() != Stopped {
		t.Errorf("state: got %s", p.State())
	}
}

// gatedInferencer blocks Refresh until release is closed.
type gatedInferencer struct {
	*phase.Inferencer
	entered chan struct{}
	release chan struct{}
}

func (g *gatedInferencer) Refresh(ctx context.Context) error {
	close(g.entered)
	<-g.release
	return g.Inferencer.Refresh(ctx)
}

func TestStart_LoadingDoesNotHoldState(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	inf := &gatedInferencer{
		Inferencer: phase.New(phase.Static{S: week2()}, phase.Options{Logger: log}),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	p := New(newFakeSource(), inf, nil, Options{Logger: log, Now: func() time.Time { return now }})

	errc := make(chan error, 1)
	go func() { errc <- p.Start(context.Background(), time.Hour, func(Update, func()) {}) }()
	<-inf.entered

	stopped := make(chan struct{})
	go func() {
		if err := p.Start(context.Background(), time.Hour, func(Update, func()) {}); !errors.Is(err, ErrAlreadyStarted) {
			t.Errorf("Start while loading: want ErrAlreadyStarted, got %v", err)
		}
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked while Start was loading the schedule")
	}
	close(inf.release)
	if err := <-errc; !errors.Is(err, ErrStopped) {
		t.Errorf("Start after concurrent Stop: want ErrStopped, got %v", err)
	}
	if p.State() != Stopped {
		t.Errorf("state: got %s", p.State())
	}
}

func TestTick_DropsGameThatNeverFinishes(t *testing.T) {
	src := newFakeSource()
	clock := now
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	inf := phase.New(phase.Static{S: week2()}, phase.Options{Logger: log})
	p := New(src, inf, nil, Options{
		FetchTimeout:   200 * time.Millisecond,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Logger:         log,
		Now:            func() time.Time { return clock },
	})
	src.fail("2013091501", gamecenter.ErrNotAvailable)

	u := p.Tick(context.Background())
	if !contains(u.Active, "2013091501") {
		t.Fatalf("active: got %v", u.Active)
	}

	// Kickoff was 2h before now; MaxGameTime is 6h.
	clock = now.Add(5 * time.Hour)
	if u = p.Tick(context.Background()); !contains(u.Active, "2013091501") {
		t.Errorf("within grace: want still tracked, got %v", u.Active)
	}

	clock = now.Add(7 * time.Hour)
	calls := src.count("2013091501")
	if u = p.Tick(context.Background()); contains(u.Active, "2013091501") {
		t.Errorf("past grace: want dropped, got %v", u.Active)
	}
	if src.count("2013091501") != calls {
		t.Error("dropped game was fetched")
	}
}
