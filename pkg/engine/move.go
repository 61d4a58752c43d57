package engine

// MoveType classifies a legal move.
type MoveType int

const (
	MoveEnter MoveType = iota
	MoveCaptureEnter
	MoveNormal
	MoveCapture
	MoveHomeColumn
	MoveFinish
)

var moveTypeNames = [...]string{"enter", "capture_enter", "normal", "capture", "home_column", "finish"}

func (t MoveType) String() string {
	if t < MoveEnter || t > MoveFinish {
		return "invalid"
	}
	return moveTypeNames[t]
}

// IsCapture reports whether applying the move sends opponent tokens home.
func (t MoveType) IsCapture() bool {
	return t == MoveCapture || t == MoveCaptureEnter
}

// LegalMove is a candidate action produced by the generator: which token
// moves, which single die value it consumes, and where it goes. Moves
// are ephemeral; they are regenerated from the current state whenever
// the state may have changed.
type LegalMove struct {
	TokenIndex int      `json:"token_index"`
	Value      int      `json:"value"`
	From       int      `json:"from"`
	To         int      `json:"to"`
	Type       MoveType `json:"type"`
}

// CanEnterBoard reports whether a roll permits entering a token from the
// yard: a die showing 5, or the two dice summing to 5.
func CanEnterBoard(d DiceResult) bool {
	return d.Die1 == 5 || d.Die2 == 5 || d.Total() == 5
}

// LegalMoves enumerates every legal move for the player on turn, given
// the current dice and remaining move values. The result is empty when
// the turn must be skipped; the generator never fails.
func (g *GameState) LegalMoves() []LegalMove {
	if g.Phase != PhaseMoving || g.Dice == nil {
		return nil
	}
	return g.legalMovesFor(g.Current, *g.Dice, g.RemainingMoves)
}

// LegalMovesFor enumerates legal moves for an arbitrary player and roll
// against the current board, ignoring whose turn it is. AI look-ahead
// and server-side re-validation both go through this entry point.
func (g *GameState) LegalMovesFor(color Color, dice DiceResult) []LegalMove {
	for i := range g.Players {
		if g.Players[i].Color == color {
			return g.legalMovesFor(i, dice, dice.MoveValues())
		}
	}
	return nil
}

func (g *GameState) legalMovesFor(playerIdx int, dice DiceResult, values []int) []LegalMove {
	player := &g.Players[playerIdx]
	moves := make([]LegalMove, 0, 8)

	entryVal, entryOK := entryValue(dice, values)

	for ti := range player.Tokens {
		token := &player.Tokens[ti]
		switch token.State {
		case Finished:
			continue
		case InYard:
			if !entryOK {
				continue
			}
			if m, ok := g.enterMove(ti, entryVal, player.Color); ok {
				moves = append(moves, m)
			}
		case OnBoard:
			for _, v := range distinctValues(values) {
				if m, ok := g.boardMove(ti, token.Position, v, player.Color); ok {
					moves = append(moves, m)
				}
			}
		case InHomeColumn:
			for _, v := range distinctValues(values) {
				if m, ok := homeColumnMove(ti, token.Position, v); ok {
					moves = append(moves, m)
				}
			}
		}
	}
	return moves
}

// entryValue resolves the entry rule against the unconsumed values: a
// value of 5 enters directly; otherwise, when both original dice are
// still unconsumed and sum to 5, entry consumes the first die's face.
func entryValue(dice DiceResult, values []int) (int, bool) {
	for _, v := range values {
		if v == 5 {
			return 5, true
		}
	}
	if dice.Total() == 5 && containsBoth(values, dice.Die1, dice.Die2) {
		return dice.Die1, true
	}
	return 0, false
}

func containsBoth(values []int, a, b int) bool {
	rest := append([]int(nil), values...)
	for _, want := range [2]int{a, b} {
		found := false
		for i, v := range rest {
			if v == want {
				rest = append(rest[:i], rest[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func distinctValues(values []int) []int {
	var seen [7]bool
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v >= 1 && v <= 6 && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// enterMove validates moving a yard token onto its entry square.
func (g *GameState) enterMove(tokenIdx, value int, mover Color) (LegalMove, bool) {
	dest := EntrySquare(mover)
	if g.isDoubleBlocked(dest, mover) {
		return LegalMove{}, false
	}
	mt := MoveEnter
	if g.hasCapturableOpponent(dest, mover) {
		mt = MoveCaptureEnter
	}
	return LegalMove{
		TokenIndex: tokenIdx,
		Value:      value,
		From:       YardPosition,
		To:         dest,
		Type:       mt,
	}, true
}

// boardMove validates advancing a main-track token by value squares.
func (g *GameState) boardMove(tokenIdx, from, value int, mover Color) (LegalMove, bool) {
	dest, ok := AdvancePosition(from, value, mover)
	if !ok {
		return LegalMove{}, false
	}
	m := LegalMove{TokenIndex: tokenIdx, Value: value, From: from, To: dest}
	if dest >= HomeColumnStart {
		// Crossed into the private column; nothing to block or capture.
		m.Type = MoveHomeColumn
		if dest == FinalPosition {
			m.Type = MoveFinish
		}
		return m, true
	}
	if g.isDoubleBlocked(dest, mover) {
		return LegalMove{}, false
	}
	m.Type = MoveNormal
	if g.hasCapturableOpponent(dest, mover) {
		m.Type = MoveCapture
	}
	return m, true
}

// homeColumnMove validates advancing inside the home column. An exact
// count is required to finish; overshoot produces no move.
func homeColumnMove(tokenIdx, from, value int) (LegalMove, bool) {
	dest := from + value
	if dest > FinalPosition {
		return LegalMove{}, false
	}
	mt := MoveHomeColumn
	if dest == FinalPosition {
		mt = MoveFinish
	}
	return LegalMove{TokenIndex: tokenIdx, Value: value, From: from, To: dest, Type: mt}, true
}

// isDoubleBlocked reports whether a track square holds a blockade
// against the mover: two or more tokens of a single opponent color.
// Only landing is checked; intermediate squares are not.
func (g *GameState) isDoubleBlocked(pos int, mover Color) bool {
	for i := range g.Players {
		p := &g.Players[i]
		if p.Color == mover {
			continue
		}
		count := 0
		for _, t := range p.Tokens {
			if t.State == OnBoard && t.Position == pos {
				count++
			}
		}
		if count >= 2 {
			return true
		}
	}
	return false
}

// hasCapturableOpponent reports whether landing on pos captures: at
// least one opponent token there, and the square is not globally safe.
func (g *GameState) hasCapturableOpponent(pos int, mover Color) bool {
	if IsGlobalSafe(pos) {
		return false
	}
	for i := range g.Players {
		p := &g.Players[i]
		if p.Color == mover {
			continue
		}
		for _, t := range p.Tokens {
			if t.State == OnBoard && t.Position == pos {
				return true
			}
		}
	}
	return false
}
