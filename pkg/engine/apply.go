package engine

import (
	"fmt"
	"time"
)

// Roll commits a dice roll for the player on turn, moving the game from
// the Rolling to the Moving phase, and returns the legal moves the roll
// grants. When the roll yields no legal move the turn is forfeited
// immediately: no move value is consumed and play passes to the next
// player.
func (g *GameState) Roll(d DiceResult) ([]LegalMove, error) {
	if g.Phase == PhaseFinished {
		return nil, ErrGameFinished
	}
	if g.Phase != PhaseRolling {
		return nil, fmt.Errorf("%w: cannot roll in phase %s", ErrWrongPhase, g.Phase)
	}
	if !d.Valid() {
		return nil, fmt.Errorf("%w: dice %s out of range", ErrInvalidMove, d)
	}

	dice := d
	g.Dice = &dice
	g.RemainingMoves = d.MoveValues()
	g.Phase = PhaseMoving
	g.UpdatedAt = time.Now().UTC()

	moves := g.LegalMoves()
	if len(moves) == 0 {
		g.AdvanceTurn()
	}
	return moves, nil
}

// Apply commits a single move to the state. The move must be present in
// the current legal-move set; anything else is a caller contract
// violation reported as ErrInvalidMove with no state change. After the
// move, the applier finishes the turn when the movement budget is
// exhausted: bonus roll for the same player on a double or a capture,
// otherwise advance to the next player.
func (g *GameState) Apply(move LegalMove) error {
	if g.Phase == PhaseFinished {
		return ErrGameFinished
	}
	if g.Phase != PhaseMoving || g.Dice == nil {
		return fmt.Errorf("%w: cannot move in phase %s", ErrWrongPhase, g.Phase)
	}
	if !g.isLegal(move) {
		return fmt.Errorf("%w: %s token %d %d->%d", ErrInvalidMove,
			move.Type, move.TokenIndex, move.From, move.To)
	}

	player := g.CurrentPlayer()
	if move.Type.IsCapture() {
		g.captureAt(move.To, player.Color)
	}

	token := &player.Tokens[move.TokenIndex]
	token.Position = move.To
	switch move.Type {
	case MoveEnter, MoveCaptureEnter, MoveNormal, MoveCapture:
		token.State = OnBoard
	case MoveHomeColumn:
		token.State = InHomeColumn
	case MoveFinish:
		token.State = Finished
		token.Finished = true
	}

	g.consumeValue(move.Value)
	g.UpdatedAt = time.Now().UTC()

	if winner := g.CheckWinner(); winner != nil {
		g.Phase = PhaseFinished
		g.Dice = nil
		g.RemainingMoves = nil
		return nil
	}

	// Movement ends when no values remain or none of the leftover
	// values can be used.
	if len(g.RemainingMoves) == 0 || len(g.LegalMoves()) == 0 {
		g.endTurn()
	}
	return nil
}

func (g *GameState) isLegal(move LegalMove) bool {
	for _, m := range g.LegalMoves() {
		if m == move {
			return true
		}
	}
	return false
}

// captureAt sends every opponent token on a square back to its yard and
// records one capture event per captured color.
func (g *GameState) captureAt(pos int, capturer Color) {
	for i := range g.Players {
		p := &g.Players[i]
		if p.Color == capturer {
			continue
		}
		captured := false
		for ti := range p.Tokens {
			t := &p.Tokens[ti]
			if t.State == OnBoard && t.Position == pos {
				t.State = InYard
				t.Position = YardPosition
				captured = true
			}
		}
		if captured {
			g.Captures = append(g.Captures, CaptureEvent{
				Capturing: capturer,
				Captured:  p.Color,
				Position:  pos,
				Turn:      g.Turn,
			})
			g.CapturedThisTurn = true
		}
	}
}

// consumeValue removes one matching occurrence from the remaining-move
// list, never more.
func (g *GameState) consumeValue(v int) {
	for i, rv := range g.RemainingMoves {
		if rv == v {
			g.RemainingMoves = append(g.RemainingMoves[:i], g.RemainingMoves[i+1:]...)
			return
		}
	}
}

func (g *GameState) endTurn() {
	if BonusTurn(*g.Dice, g.CapturedThisTurn) {
		// Same player rolls again; per-turn transients reset.
		g.Dice = nil
		g.RemainingMoves = nil
		g.CapturedThisTurn = false
		g.Phase = PhaseRolling
		return
	}
	g.AdvanceTurn()
}
