package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pable/nflfeed/internal/gamecenter"
	"github.com/pable/nflfeed/internal/live"
	"github.com/pable/nflfeed/internal/phase"
	"github.com/pable/nflfeed/internal/publish"
	"github.com/pable/nflfeed/internal/report"
)

// watch command flags.
var (
	// watchInterval overrides poll.interval_seconds.
	watchInterval time.Duration
	// watchSchedule overrides schedule_file.
	watchSchedule string
	// watchQuiet suppresses ticks that carry no diffs or completions.
	watchQuiet bool
	// watchNoPublish disables the Redis stream even when configured.
	watchNoPublish bool
	// watchJSON prints one JSON line per tick; defaults to on when stdout is
	// not a terminal.
	watchJSON bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow this week's live games and print play changes",
	Long: `Polls every active game of the current week on a fixed interval and prints
the plays added or changed since the previous poll. Games are stored once
when they finish. When redis.addr is configured every diff and completion is
also appended to the configured Redis stream.

Only one watcher may run against a database at a time.

Examples:
  nflfeed watch
  nflfeed watch --interval 30s --quiet
  NFLFEED_REDIS_ADDR=localhost:6379 nflfeed watch --log-format json`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default from config: 15s)")
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "schedule JSON file (default from config)")
	watchCmd.Flags().BoolVarP(&watchQuiet, "quiet", "q", false, "only print ticks with changes")
	watchCmd.Flags().BoolVar(&watchNoPublish, "no-publish", false, "do not publish to Redis")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print one JSON line per tick (default when stdout is not a terminal)")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock database: %w", err)
	}
	if !locked {
		return fmt.Errorf("another watcher is already running against %s", dbPath)
	}
	defer lock.Unlock()

	schedule := cfg.ScheduleFile
	if watchSchedule != "" {
		schedule = watchSchedule
	}
	interval := cfg.Interval()
	if watchInterval > 0 {
		interval = watchInterval
	}

	var pub *publish.StreamPublisher
	if cfg.Redis.Addr != "" && !watchNoPublish {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pub = publish.NewStreamPublisher(rdb, cfg.Redis.Stream, cfg.Redis.MaxLen)
		defer pub.Close()
		if err := pub.Ping(ctx); err != nil {
			return err
		}
		logger.Info("publishing updates", "addr", cfg.Redis.Addr, "stream", cfg.Redis.Stream)
	}

	client := gamecenter.NewClient(cfg.Feed.BaseURL, cfg.RequestTimeout(), logger)
	inf := phase.New(phase.FileProvider{Path: schedule}, phase.Options{
		RefreshEvery: cfg.ScheduleRefresh(),
		Logger:       logger,
	})
	poller := live.New(&gamecenter.CachedSource{Store: db, Upstream: client}, inf, db, live.Options{
		Workers:      cfg.Poll.Workers,
		FetchTimeout: cfg.FetchTimeout(),
		MaxAttempts:  cfg.Poll.MaxAttempts,
		Lookahead:    cfg.Lookahead(),
		MaxGameTime:  cfg.MaxGameTime(),
		IdleInterval: cfg.Lookahead(),
		Logger:       logger,
	})

	asJSON := watchJSON || !flagChanged(cmd, "json") && !report.IsTerminal(os.Stdout)
	onUpdate := func(u live.Update, _ func()) {
		switch {
		case watchQuiet && len(u.Diffs) == 0 && len(u.Completed) == 0:
		case asJSON:
			if err := report.WriteUpdateJSON(os.Stdout, u); err != nil {
				logger.Warn("write update failed", "error", err)
			}
		default:
			report.PrintUpdate(os.Stdout, u)
		}
		if pub == nil {
			return
		}
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pub.Publish(pctx, u); err != nil {
			logger.Warn("publish update failed", "tick_id", u.TickID.String(), "error", err)
		}
	}

	if err := poller.Start(ctx, interval, onUpdate); err != nil {
		return fmt.Errorf("start watcher (schedule %s): %w", schedule, err)
	}
	<-ctx.Done()
	poller.Stop()
	return nil
}
