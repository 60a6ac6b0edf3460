// Package publish pushes live updates to a Redis stream.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/pable/nflfeed/internal/live"
	"github.com/pable/nflfeed/internal/model"
)

// Event types carried in the "type" field of each stream entry.
const (
	TypeDiff      = "diff"
	TypeCompleted = "completed"
)

// StreamPublisher appends one stream entry per game diff and per completed
// game.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewStreamPublisher returns a publisher writing to stream, trimmed
// approximately to maxLen entries when maxLen is positive.
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Ping checks the connection.
func (p *StreamPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Publish writes the entries for u. Every entry is attempted; failures are
// joined.
func (p *StreamPublisher) Publish(ctx context.Context, u live.Update) error {
	entries, err := Entries(u)
	if err != nil {
		return err
	}
	var errs []error
	for _, values := range entries {
		args := &redis.XAddArgs{Stream: p.stream, Values: values}
		if p.maxLen > 0 {
			args.MaxLen = p.maxLen
			args.Approx = true
		}
		if err := p.client.XAdd(ctx, args).Err(); err != nil {
			errs = append(errs, fmt.Errorf("xadd %s game %v: %w", p.stream, values["game_id"], err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the client.
func (p *StreamPublisher) Close() error {
	return p.client.Close()
}

type completedEvent struct {
	GameID string          `json:"game_id"`
	Home   model.TeamScore `json:"home"`
	Away   model.TeamScore `json:"away"`
	Winner string          `json:"winner"`
}

// Entries builds the stream values for an update: diffs first, by game, then
// completions.
func Entries(u live.Update) ([]map[string]any, error) {
	var out []map[string]any
	base := func(typ, gameID string, data []byte) map[string]any {
		return map[string]any{
			"type":    typ,
			"game_id": gameID,
			"tick_id": u.TickID.String(),
			"phase":   u.Phase.String(),
			"data":    string(data),
		}
	}

	for _, d := range u.Diffs {
		data, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("marshaling diff %s: %w", d.GameID, err)
		}
		values := base(TypeDiff, d.GameID, data)
		values["changes"] = strconv.Itoa(len(d.Changes))
		out = append(out, values)
	}

	for _, id := range u.Completed {
		s := u.Snapshots[id]
		if s == nil {
			continue
		}
		data, err := json.Marshal(completedEvent{GameID: id, Home: s.Home, Away: s.Away, Winner: s.Winner()})
		if err != nil {
			return nil, fmt.Errorf("marshaling completion %s: %w", id, err)
		}
		out = append(out, base(TypeCompleted, id, data))
	}
	return out, nil
}
