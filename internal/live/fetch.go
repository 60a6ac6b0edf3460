package live

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/pable/nflfeed/internal/gamecenter"
	"github.com/pable/nflfeed/internal/model"
)

type fetchResult struct {
	snap   *model.Snapshot
	status Status
	err    error
}

// fetchAll fetches ids concurrently on at most Workers goroutines. Results are
// indexed like ids.
func (p *Poller) fetchAll(ctx context.Context, ids []string) []fetchResult {
	results := make([]fetchResult, len(ids))
	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = p.fetchOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// fetchOne retries transient failures with exponential backoff inside the
// per-game timeout. Missing and malformed documents are not retried.
func (p *Poller) fetchOne(ctx context.Context, id string) fetchResult {
	fctx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.opts.InitialBackoff
	eb.MaxInterval = p.opts.MaxBackoff

	attempts := 0
	snap, err := backoff.Retry(fctx, func() (*model.Snapshot, error) {
		attempts++
		s, err := p.src.Fetch(fctx, id)
		switch {
		case err == nil:
			return s, nil
		case errors.Is(err, gamecenter.ErrNotAvailable), errors.Is(err, model.ErrMalformedSnapshot):
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(p.opts.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			p.log.Debug("retrying game fetch", "game_id", id, "error", err, "wait", wait)
		}),
	)

	switch {
	case err == nil && snap != nil:
		return fetchResult{snap: snap, status: StatusOK}
	case err == nil, errors.Is(err, gamecenter.ErrNotAvailable):
		return fetchResult{status: StatusPending}
	case errors.Is(err, model.ErrMalformedSnapshot):
		return fetchResult{status: StatusMalformed, err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), fctx.Err() != nil:
		return fetchResult{status: StatusTimeout, err: err}
	}
	return fetchResult{status: StatusFetchFailed, err: &model.FetchError{GameID: id, Attempts: attempts, Err: err}}
}
