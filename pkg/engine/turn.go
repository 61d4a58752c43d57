package engine

import "time"

// BonusTurn reports whether the roll earns the player another turn: a
// double, or at least one capture made during the turn. Evaluated once
// the turn's movement is exhausted, not per individual move.
func BonusTurn(d DiceResult, capturedThisTurn bool) bool {
	return d.IsDouble() || capturedThisTurn
}

// AdvanceTurn passes play to the next player in order, clears the dice
// and remaining moves, and returns the game to the Rolling phase. Turn
// timers that expire call this directly, as if the player had passed.
func (g *GameState) AdvanceTurn() {
	g.Current = (g.Current + 1) % len(g.Players)
	g.Dice = nil
	g.RemainingMoves = nil
	g.CapturedThisTurn = false
	g.Phase = PhaseRolling
	g.Turn++
	g.UpdatedAt = time.Now().UTC()
}

// CheckWinner returns the first player in turn order with all four
// tokens finished, or nil. Pure query.
func (g *GameState) CheckWinner() *Player {
	for i := range g.Players {
		p := &g.Players[i]
		finished := 0
		for _, t := range p.Tokens {
			if t.Finished {
				finished++
			}
		}
		if finished == TokensPerPlayer {
			return p
		}
	}
	return nil
}
