package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/xtaveras38/Parcheesi/internal/statekey"
)

// TokenState tracks where a token is in its lifecycle.
type TokenState int

const (
	InYard TokenState = iota
	OnBoard
	InHomeColumn
	Finished
)

var tokenStateNames = [...]string{"yard", "board", "home_column", "finished"}

func (s TokenState) String() string {
	if s < InYard || s > Finished {
		return "invalid"
	}
	return tokenStateNames[s]
}

// Token is one of a player's four pieces. Position is -1 in the yard,
// 0-51 on the main track and 52-57 inside the home column (57 is the
// final square; a token that reaches it is finished and keeps that
// position).
type Token struct {
	Color    Color      `json:"color"`
	State    TokenState `json:"state"`
	Position int        `json:"position"`
	Finished bool       `json:"finished"`
}

// Difficulty selects the AI move policy for a player.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

// Player owns four tokens of a single color. Token ownership never
// changes for the life of the player.
type Player struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Color      Color                  `json:"color"`
	Tokens     [TokensPerPlayer]Token `json:"tokens"`
	AI         bool                   `json:"ai"`
	Difficulty Difficulty             `json:"difficulty,omitempty"`
}

// GamePhase is the turn state machine position.
type GamePhase int

const (
	PhaseWaiting GamePhase = iota
	PhaseRolling
	PhaseMoving
	PhaseAnimating
	PhaseFinished
)

var phaseNames = [...]string{"waiting", "rolling", "moving", "animating", "finished"}

func (p GamePhase) String() string {
	if p < PhaseWaiting || p > PhaseFinished {
		return "invalid"
	}
	return phaseNames[p]
}

// CaptureEvent is an immutable, append-only log record of one capture.
type CaptureEvent struct {
	Capturing Color `json:"capturing"`
	Captured  Color `json:"captured"`
	Position  int   `json:"position"`
	Turn      int   `json:"turn"`
}

// GameState is the authoritative snapshot of a game. Player order is
// turn order. It is mutated exclusively through Roll, Apply and
// AdvanceTurn; all other methods are pure reads.
type GameState struct {
	Players          []Player       `json:"players"`
	Current          int            `json:"current"`
	Phase            GamePhase      `json:"phase"`
	Dice             *DiceResult    `json:"dice,omitempty"`
	RemainingMoves   []int          `json:"remaining_moves,omitempty"`
	Turn             int            `json:"turn"`
	Captures         []CaptureEvent `json:"captures"`
	CapturedThisTurn bool           `json:"captured_this_turn"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// PlayerConfig describes one player for game creation.
type PlayerConfig struct {
	Name       string
	Color      Color
	AI         bool
	Difficulty Difficulty
}

// Errors of the narrow taxonomy the engine exposes. Everything else is a
// "move does not exist" non-error.
var (
	ErrInvalidMove   = errors.New("move is not legal in the current state")
	ErrWrongPhase    = errors.New("operation not valid in current phase")
	ErrInvalidState  = errors.New("state violates engine invariants")
	ErrGameFinished  = errors.New("game is finished")
	ErrInvalidConfig = errors.New("invalid game configuration")
)

// NewGame creates a game in the Rolling phase with all tokens in their
// yards. Between 2 and 4 players are required, each with a distinct
// color.
func NewGame(configs []PlayerConfig) (*GameState, error) {
	if len(configs) < 2 || len(configs) > NumColors {
		return nil, fmt.Errorf("%w: need 2-4 players, got %d", ErrInvalidConfig, len(configs))
	}
	seen := map[Color]bool{}
	now := time.Now().UTC()
	g := &GameState{
		Players:   make([]Player, 0, len(configs)),
		Phase:     PhaseRolling,
		Turn:      1,
		Captures:  []CaptureEvent{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, cfg := range configs {
		if !cfg.Color.Valid() {
			return nil, fmt.Errorf("%w: player %d has invalid color", ErrInvalidConfig, i)
		}
		if seen[cfg.Color] {
			return nil, fmt.Errorf("%w: color %s assigned twice", ErrInvalidConfig, cfg.Color)
		}
		seen[cfg.Color] = true
		p := Player{
			ID:         fmt.Sprintf("p%d", i+1),
			Name:       cfg.Name,
			Color:      cfg.Color,
			AI:         cfg.AI,
			Difficulty: cfg.Difficulty,
		}
		for t := range p.Tokens {
			p.Tokens[t] = Token{Color: cfg.Color, State: InYard, Position: YardPosition}
		}
		g.Players = append(g.Players, p)
	}
	return g, nil
}

// CurrentPlayer returns the player on turn.
func (g *GameState) CurrentPlayer() *Player {
	return &g.Players[g.Current]
}

// PlayerByColor returns the player owning a color, or nil.
func (g *GameState) PlayerByColor(c Color) *Player {
	for i := range g.Players {
		if g.Players[i].Color == c {
			return &g.Players[i]
		}
	}
	return nil
}

// Clone returns a deep copy sharing no mutable memory with the receiver.
// AI look-ahead must simulate on clones, never on the live state.
func (g *GameState) Clone() *GameState {
	c := *g
	c.Players = make([]Player, len(g.Players))
	copy(c.Players, g.Players)
	if g.Dice != nil {
		d := *g.Dice
		c.Dice = &d
	}
	c.RemainingMoves = append([]int(nil), g.RemainingMoves...)
	c.Captures = append([]CaptureEvent(nil), g.Captures...)
	return &c
}

// Key returns the compact state key of the current snapshot, covering
// every token placement and the player on turn.
func (g *GameState) Key() statekey.Key {
	var codes [statekey.NumTokens]uint8
	for i := range g.Players {
		p := &g.Players[i]
		for t, tok := range p.Tokens {
			codes[int(p.Color)*TokensPerPlayer+t] = tokenCode(tok)
		}
	}
	k, err := statekey.Make(g.Current, codes)
	if err != nil {
		// Only reachable on a state that fails Validate.
		panic(err)
	}
	return k
}

func tokenCode(t Token) uint8 {
	switch t.State {
	case InYard:
		return statekey.CodeYard
	case Finished:
		return statekey.CodeFinished
	default:
		return uint8(statekey.CodeTrackLo + t.Position)
	}
}

// Validate checks every structural invariant of the data model. It must
// be called on any state received from outside the engine (decoded from
// persistence or the network) before game logic runs.
func (g *GameState) Validate() error {
	if len(g.Players) < 2 || len(g.Players) > NumColors {
		return fmt.Errorf("%w: %d players", ErrInvalidState, len(g.Players))
	}
	if g.Current < 0 || g.Current >= len(g.Players) {
		return fmt.Errorf("%w: current player index %d out of range", ErrInvalidState, g.Current)
	}
	if g.Phase < PhaseWaiting || g.Phase > PhaseFinished {
		return fmt.Errorf("%w: unknown phase %d", ErrInvalidState, int(g.Phase))
	}
	seen := map[Color]bool{}
	for i := range g.Players {
		p := &g.Players[i]
		if !p.Color.Valid() {
			return fmt.Errorf("%w: player %d has invalid color", ErrInvalidState, i)
		}
		if seen[p.Color] {
			return fmt.Errorf("%w: color %s assigned twice", ErrInvalidState, p.Color)
		}
		seen[p.Color] = true
		for t, tok := range p.Tokens {
			if err := validateToken(tok, p.Color); err != nil {
				return fmt.Errorf("player %d token %d: %w", i, t, err)
			}
		}
	}
	switch g.Phase {
	case PhaseRolling:
		if g.Dice != nil || len(g.RemainingMoves) != 0 {
			return fmt.Errorf("%w: rolling phase carries dice data", ErrInvalidState)
		}
	case PhaseMoving:
		if g.Dice == nil {
			return fmt.Errorf("%w: moving phase without dice", ErrInvalidState)
		}
		if !g.Dice.Valid() {
			return fmt.Errorf("%w: dice out of range", ErrInvalidState)
		}
		for _, v := range g.RemainingMoves {
			if v < 1 || v > 6 {
				return fmt.Errorf("%w: remaining move value %d out of range", ErrInvalidState, v)
			}
		}
	case PhaseFinished:
		if g.Dice != nil || len(g.RemainingMoves) != 0 {
			return fmt.Errorf("%w: finished game carries dice data", ErrInvalidState)
		}
	}
	return nil
}

func validateToken(t Token, owner Color) error {
	if t.Color != owner {
		return fmt.Errorf("%w: token color %s does not match owner %s", ErrInvalidState, t.Color, owner)
	}
	if t.Finished != (t.State == Finished) {
		return fmt.Errorf("%w: finished flag disagrees with state %s", ErrInvalidState, t.State)
	}
	switch t.State {
	case InYard:
		if t.Position != YardPosition {
			return fmt.Errorf("%w: yard token at position %d", ErrInvalidState, t.Position)
		}
	case OnBoard:
		if t.Position < 0 || t.Position >= TrackLength {
			return fmt.Errorf("%w: board token at position %d", ErrInvalidState, t.Position)
		}
	case InHomeColumn:
		if t.Position < HomeColumnStart || t.Position > FinalPosition {
			return fmt.Errorf("%w: home-column token at position %d", ErrInvalidState, t.Position)
		}
	case Finished:
		if t.Position != FinalPosition {
			return fmt.Errorf("%w: finished token at position %d", ErrInvalidState, t.Position)
		}
	default:
		return fmt.Errorf("%w: unknown token state %d", ErrInvalidState, int(t.State))
	}
	return nil
}
