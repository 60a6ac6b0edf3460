package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pable/nflfeed/internal/model"
)

// SaveCompleted records a completed game with its snapshot and per-player
// stats in one transaction. A game is written at most once: when the game id
// already exists nothing changes and inserted is false.
func (db *DB) SaveCompleted(g model.StoredGame, s *model.Snapshot, stats []model.ParticipantStats) (inserted bool, err error) {
	blob, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("encode snapshot %s: %w", g.GameID, err)
	}
	if g.CompletedAt.IsZero() {
		g.CompletedAt = time.Now().UTC()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO games(game_id, home, away, home_score, away_score, season_year, phase, week, completed_at, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id) DO NOTHING`,
		g.GameID, g.Home, g.Away, g.HomeScore, g.AwayScore,
		g.SeasonYear, string(g.Phase), g.Week,
		g.CompletedAt.UTC().Format(time.RFC3339), string(blob),
	)
	if err != nil {
		return false, fmt.Errorf("insert game %s: %w", g.GameID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO player_game_stats(game_id, player_id, name, team, position, home, stat, value)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return false, err
	}
	defer stmt.Close()

	for _, p := range stats {
		for stat, v := range p.Stats {
			if _, err := stmt.Exec(g.GameID, p.ID, p.Name, p.Team, p.Position, int(p.Home), stat, v); err != nil {
				return false, fmt.Errorf("insert player_game_stats for %s: %w", p.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// CompletedExists returns true if the game is stored as completed.
func (db *DB) CompletedExists(gameID string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM games WHERE game_id = ?", gameID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LoadSnapshot returns the stored final snapshot of a completed game.
func (db *DB) LoadSnapshot(gameID string) (*model.Snapshot, bool, error) {
	var blob string
	err := db.conn.QueryRow("SELECT snapshot FROM games WHERE game_id = ?", gameID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var s model.Snapshot
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", gameID, err)
	}
	return &s, true, nil
}

// GameFilter narrows ListGames. Zero fields match everything.
type GameFilter struct {
	SeasonYear int
	Phase      model.Phase
	Week       int
	Team       string
}

// ListGames returns stored games, most recently completed first.
func (db *DB) ListGames(f GameFilter) ([]model.StoredGame, error) {
	rows, err := db.conn.Query(`
		SELECT game_id, home, away, home_score, away_score, season_year, phase, week, completed_at
		FROM games
		WHERE (? = 0 OR season_year = ?)
		  AND (? = '' OR phase = ?)
		  AND (? = 0 OR week = ?)
		  AND (? = '' OR home = ? OR away = ?)
		ORDER BY completed_at DESC, game_id DESC`,
		f.SeasonYear, f.SeasonYear,
		string(f.Phase), string(f.Phase),
		f.Week, f.Week,
		f.Team, f.Team, f.Team,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StoredGame
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetGameByPrefix finds the first stored game whose id starts with the given prefix.
func (db *DB) GetGameByPrefix(prefix string) (*model.StoredGame, error) {
	row := db.conn.QueryRow(`
		SELECT game_id, home, away, home_score, away_score, season_year, phase, week, completed_at
		FROM games WHERE game_id LIKE ? ORDER BY game_id LIMIT 1`, prefix+"%")
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(r scanner) (model.StoredGame, error) {
	var g model.StoredGame
	var phase, completed string
	if err := r.Scan(&g.GameID, &g.Home, &g.Away, &g.HomeScore, &g.AwayScore,
		&g.SeasonYear, &phase, &g.Week, &completed); err != nil {
		return g, err
	}
	g.Phase = model.Phase(phase)
	t, err := time.Parse(time.RFC3339, completed)
	if err != nil {
		return g, fmt.Errorf("parse completed_at for %s: %w", g.GameID, err)
	}
	g.CompletedAt = t
	return g, nil
}

// GamePlayerStats returns the stored per-player stats of one game, by player id.
func (db *DB) GamePlayerStats(gameID string) ([]model.ParticipantStats, error) {
	rows, err := db.conn.Query(`
		SELECT player_id, name, team, position, home, stat, value
		FROM player_game_stats WHERE game_id = ?
		ORDER BY player_id, stat`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ParticipantStats
	for rows.Next() {
		var p model.ParticipantStats
		var home int
		var stat string
		var v float64
		if err := rows.Scan(&p.ID, &p.Name, &p.Team, &p.Position, &home, &stat, &v); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].ID == p.ID {
			out[n-1].Stats[stat] = v
			continue
		}
		p.Home = model.Side(home)
		p.Games = 1
		p.Stats = map[string]float64{stat: v}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PlayerGame is one stored game of a player with that game's stats.
type PlayerGame struct {
	Game  model.StoredGame
	Stats model.ParticipantStats
}

// PlayerGames returns every stored game a player recorded stats in, oldest
// first.
func (db *DB) PlayerGames(playerID string) ([]PlayerGame, error) {
	rows, err := db.conn.Query(`
		SELECT g.game_id, g.home, g.away, g.home_score, g.away_score, g.season_year, g.phase, g.week, g.completed_at,
		       s.name, s.team, s.position, s.home, s.stat, s.value
		FROM player_game_stats s JOIN games g ON g.game_id = s.game_id
		WHERE s.player_id = ?
		ORDER BY g.completed_at, g.game_id, s.stat`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerGame
	for rows.Next() {
		var (
			g           model.StoredGame
			phase, done string
			p           model.ParticipantStats
			home        int
			stat        string
			v           float64
		)
		if err := rows.Scan(&g.GameID, &g.Home, &g.Away, &g.HomeScore, &g.AwayScore, &g.SeasonYear, &phase, &g.Week, &done,
			&p.Name, &p.Team, &p.Position, &home, &stat, &v); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].Game.GameID == g.GameID {
			out[n-1].Stats.Stats[stat] = v
			continue
		}
		g.Phase = model.Phase(phase)
		if g.CompletedAt, err = time.Parse(time.RFC3339, done); err != nil {
			return nil, fmt.Errorf("parse completed_at for %s: %w", g.GameID, err)
		}
		p.ID = playerID
		p.Home = model.Side(home)
		p.Games = 1
		p.Stats = map[string]float64{stat: v}
		out = append(out, PlayerGame{Game: g, Stats: p})
	}
	return out, rows.Err()
}

// DeleteGame removes a stored game and its stats. It reports whether the game
// existed.
func (db *DB) DeleteGame(gameID string) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM games WHERE game_id = ?`, gameID)
	if err != nil {
		return false, fmt.Errorf("delete game %s: %w", gameID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
