// Package api provides the HTTP/JSON and WebSocket surface for the
// Parcheesi engine: game session management, move submission and
// analysis endpoints.
package api

import (
	"fmt"
	"strings"

	"github.com/xtaveras38/Parcheesi/pkg/engine"
)

// PlayerSpec describes one seat in a game-creation request.
type PlayerSpec struct {
	Name       string `json:"name"`
	Color      string `json:"color"`                // "red", "blue", "green", "yellow"
	AI         bool   `json:"ai,omitempty"`         // seat is played by the server
	Difficulty string `json:"difficulty,omitempty"` // "easy", "medium", "hard"
}

// CreateGameRequest is the request body for creating a game session.
type CreateGameRequest struct {
	Players []PlayerSpec `json:"players"`
	Seed    int64        `json:"seed,omitempty"` // dice seed (0 = random)
}

// GameResponse is the standard session snapshot returned by most
// game endpoints.
type GameResponse struct {
	ID    string            `json:"id"`
	Key   string            `json:"key"` // compact state key, base64
	State *engine.GameState `json:"state"`
}

// RollRequest is the request body for committing a dice roll. When
// Dice is omitted the server rolls the session's own dice.
type RollRequest struct {
	Dice *[2]int `json:"dice,omitempty"`
}

// RollResponse reports the committed roll and the moves it grants. An
// empty move list means the turn was forfeited.
type RollResponse struct {
	Dice  engine.DiceResult  `json:"dice"`
	Moves []engine.LegalMove `json:"moves"`
	Game  GameResponse       `json:"game"`
}

// MoveRequest is the request body for applying a move. The move is
// re-validated against the server's legal-move set before it is
// committed; client state is never trusted.
type MoveRequest struct {
	Move engine.LegalMove `json:"move"`
}

// MovesResponse lists the legal moves in the current session state.
type MovesResponse struct {
	Moves []engine.LegalMove `json:"moves"`
	Key   string             `json:"key"`
}

// AnalyzeMovesRequest asks for a ranked evaluation of the legal moves
// of an arbitrary snapshot. The snapshot is validated before analysis.
type AnalyzeMovesRequest struct {
	State *engine.GameState `json:"state"`
}

// AnalyzeMovesResponse is the ranked move list, best first.
type AnalyzeMovesResponse struct {
	Moves []engine.RankedMove `json:"moves"`
	Key   string              `json:"key"`
}

// RolloutRequest asks for a Monte Carlo win-probability estimate for
// one color of an arbitrary snapshot.
type RolloutRequest struct {
	State    *engine.GameState `json:"state"`
	Target   string            `json:"target"`              // color to report statistics for
	Trials   int               `json:"trials,omitempty"`    // default 1296
	Seed     int64             `json:"seed,omitempty"`      // 0 = random
	MaxTurns int               `json:"max_turns,omitempty"` // trial abandon cap
}

// RolloutResponse reports rollout statistics.
type RolloutResponse struct {
	WinProb    map[string]float64 `json:"win_prob"` // per color name
	TargetWin  float64            `json:"target_win"`
	StdDev     float64            `json:"std_dev"`
	CI95       float64            `json:"ci_95"`
	Trials     int                `json:"trials"`
	Unfinished int                `json:"unfinished"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string     `json:"status"`
	Version string     `json:"version"`
	Games   int        `json:"games"`
	Pool    *PoolStats `json:"pool,omitempty"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// parseColor maps a color name to its engine value.
func parseColor(s string) (engine.Color, error) {
	switch strings.ToLower(s) {
	case "red":
		return engine.Red, nil
	case "blue":
		return engine.Blue, nil
	case "green":
		return engine.Green, nil
	case "yellow":
		return engine.Yellow, nil
	default:
		return 0, fmt.Errorf("unknown color %q", s)
	}
}

// parseDifficulty maps a difficulty name to its engine value. The empty
// string defaults to medium.
func parseDifficulty(s string) (engine.Difficulty, error) {
	switch strings.ToLower(s) {
	case "easy":
		return engine.Easy, nil
	case "medium", "":
		return engine.Medium, nil
	case "hard":
		return engine.Hard, nil
	default:
		return 0, fmt.Errorf("unknown difficulty %q", s)
	}
}
