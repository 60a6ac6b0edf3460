// Package gamecenter fetches and decodes NFL GameCenter live game documents.
package gamecenter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pable/nflfeed/internal/model"
)

// DefaultBaseURL is the root of the GameCenter live update feed.
const DefaultBaseURL = "http://www.nfl.com/liveupdate/game-center"

// maxDocument bounds a single game document.
const maxDocument = 16 << 20

// Source yields the current snapshot of a game.
type Source interface {
	Fetch(ctx context.Context, gameID string) (*model.Snapshot, error)
}

// Client fetches game documents over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewClient returns a client for the feed rooted at baseURL (DefaultBaseURL
// when empty). The timeout bounds each request.
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Raw returns the undecoded document for a game. A 404 or an empty body
// means the feed has nothing yet and yields ErrNotAvailable.
func (c *Client) Raw(ctx context.Context, gameID string) ([]byte, error) {
	path := fmt.Sprintf("/%s/%s_gtd.json", gameID, gameID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotAvailable
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocument))
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", path, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, ErrNotAvailable
	}
	return body, nil
}

// Fetch implements Source.
func (c *Client) Fetch(ctx context.Context, gameID string) (*model.Snapshot, error) {
	body, err := c.Raw(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s, dropped, err := Decode(gameID, body)
	if err != nil {
		return nil, err
	}
	for _, d := range dropped {
		c.log.Warn("dropped drive", "game_id", gameID, "error", d)
	}
	s.FetchedAt = time.Now().UTC()
	return s, nil
}

// Store is the persisted side of a CachedSource.
type Store interface {
	LoadSnapshot(gameID string) (*model.Snapshot, bool, error)
}

// CachedSource serves completed games from a Store and everything else from
// the upstream Source. In-progress games are never cached.
type CachedSource struct {
	Store    Store
	Upstream Source
}

// Fetch implements Source.
func (c *CachedSource) Fetch(ctx context.Context, gameID string) (*model.Snapshot, error) {
	if c.Store != nil {
		s, ok, err := c.Store.LoadSnapshot(gameID)
		if err != nil {
			return nil, fmt.Errorf("load cached %s: %w", gameID, err)
		}
		if ok {
			return s, nil
		}
	}
	return c.Upstream.Fetch(ctx, gameID)
}
