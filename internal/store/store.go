// Package store archives finished games to PostgreSQL. The engine and
// API never depend on it being available; the server wires it in only
// when a DSN is configured.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/xtaveras38/Parcheesi/pkg/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id          TEXT PRIMARY KEY,
	winner      TEXT,
	turns       INTEGER NOT NULL,
	players     JSONB NOT NULL,
	snapshot    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS captures (
	id        BIGSERIAL PRIMARY KEY,
	game_id   TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	capturing TEXT NOT NULL,
	captured  TEXT NOT NULL,
	position  INTEGER NOT NULL,
	turn      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS captures_game_idx ON captures(game_id);
`

// Store wraps the archive database.
type Store struct {
	db *sqlx.DB
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	return &Store{db: db}, nil
}

// Init creates the archive tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// playerSummary is the per-player slice of the archived players column.
type playerSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	AI       bool   `json:"ai"`
	Finished int    `json:"finished"`
}

// ArchiveGame writes one finished game and its capture history in a
// single transaction. Archiving the same ID twice is a no-op.
func (s *Store) ArchiveGame(ctx context.Context, id string, g *engine.GameState) error {
	winner := ""
	if w := g.CheckWinner(); w != nil {
		winner = w.Color.String()
	}

	players := make([]playerSummary, 0, len(g.Players))
	for _, p := range g.Players {
		finished := 0
		for _, t := range p.Tokens {
			if t.Finished {
				finished++
			}
		}
		players = append(players, playerSummary{
			ID:       p.ID,
			Name:     p.Name,
			Color:    p.Color.String(),
			AI:       p.AI,
			Finished: finished,
		})
	}
	playersJSON, err := json.Marshal(players)
	if err != nil {
		return fmt.Errorf("store: marshal players: %w", err)
	}
	snapshotJSON, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO games (id, winner, turns, players, snapshot, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		id, winner, g.Turn, playersJSON, snapshotJSON, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert game: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Already archived.
		return nil
	}

	for _, ev := range g.Captures {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO captures (game_id, capturing, captured, position, turn)
			VALUES ($1, $2, $3, $4, $5)`,
			id, ev.Capturing.String(), ev.Captured.String(), ev.Position, ev.Turn); err != nil {
			return fmt.Errorf("store: insert capture: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// GameRecord is one archived game summary.
type GameRecord struct {
	ID         string          `db:"id" json:"id"`
	Winner     string          `db:"winner" json:"winner"`
	Turns      int             `db:"turns" json:"turns"`
	Players    json.RawMessage `db:"players" json:"players"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	FinishedAt time.Time       `db:"finished_at" json:"finished_at"`
}

// RecentGames returns the most recently finished games, newest first.
func (s *Store) RecentGames(ctx context.Context, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []GameRecord
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, winner, turns, players, created_at, finished_at
		FROM games ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent games: %w", err)
	}
	return out, nil
}

// CaptureRecord is one archived capture event.
type CaptureRecord struct {
	GameID    string `db:"game_id" json:"game_id"`
	Capturing string `db:"capturing" json:"capturing"`
	Captured  string `db:"captured" json:"captured"`
	Position  int    `db:"position" json:"position"`
	Turn      int    `db:"turn" json:"turn"`
}

// GameCaptures returns the capture history of one archived game in
// turn order.
func (s *Store) GameCaptures(ctx context.Context, gameID string) ([]CaptureRecord, error) {
	var out []CaptureRecord
	err := s.db.SelectContext(ctx, &out, `
		SELECT game_id, capturing, captured, position, turn
		FROM captures WHERE game_id = $1 ORDER BY turn, id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("store: game captures: %w", err)
	}
	return out, nil
}

// Snapshot loads the full archived snapshot of one game.
func (s *Store) Snapshot(ctx context.Context, gameID string) (*engine.GameState, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT snapshot FROM games WHERE id = $1`, gameID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: game %s not archived", gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load snapshot: %w", err)
	}
	var g engine.GameState
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("store: decode snapshot: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("store: archived snapshot invalid: %w", err)
	}
	return &g, nil
}
