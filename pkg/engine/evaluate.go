package engine

import (
	"math/rand"
	"sort"
)

// Engine evaluates positions and ranks moves for the AI adapter. The
// rules functions on GameState need no Engine; only evaluation state
// (the cache) lives here.
type Engine struct {
	cache *EvalCache
}

// EngineOptions configures the evaluation engine.
type EngineOptions struct {
	CacheSize uint32 // evaluation cache entries (0 = default)
}

// NewEngine creates an evaluation engine.
func NewEngine(opts EngineOptions) *Engine {
	size := opts.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	return &Engine{cache: NewEvalCache(size)}
}

// Cache returns the evaluation cache.
func (e *Engine) Cache() *EvalCache {
	return e.cache
}

// totalPathLength is the number of steps a token travels from its entry
// square to the final home-column square: 51 track steps plus 6 column
// steps.
const totalPathLength = TrackLength - 1 + HomeColumnLength

// Evaluate scores a snapshot from one color's perspective, in [-1,1]:
// positive when that color is ahead of its strongest opponent. The score
// compares race progress, finished tokens and safe placement.
func (e *Engine) Evaluate(g *GameState, c Color) float64 {
	key := g.Key()
	score, slot := e.cache.Lookup(key, int32(c))
	if slot == CacheHit {
		return score
	}
	score = evaluate(g, c)
	e.cache.Add(key, int32(c), score, slot)
	return score
}

func evaluate(g *GameState, c Color) float64 {
	mine := 0.0
	best := 0.0
	for i := range g.Players {
		p := &g.Players[i]
		score := playerScore(p)
		if p.Color == c {
			mine = score
		} else if score > best {
			best = score
		}
	}
	return normalize(mine, best)
}

func playerScore(p *Player) float64 {
	score := 0.0
	for _, t := range p.Tokens {
		switch t.State {
		case Finished:
			score += 1.25
		case InHomeColumn:
			score += tokenProgress(t) + 0.1
		case OnBoard:
			score += tokenProgress(t)
			if IsGlobalSafe(t.Position) {
				score += 0.05
			}
		}
	}
	return score
}

// tokenProgress returns the fraction of the token's total path already
// traveled, in [0,1].
func tokenProgress(t Token) float64 {
	switch t.State {
	case Finished:
		return 1
	case InHomeColumn:
		steps := TrackLength - 1 + (t.Position - HomeColumnStart + 1)
		return float64(steps) / float64(totalPathLength)
	case OnBoard:
		steps := (t.Position - EntrySquare(t.Color) + TrackLength) % TrackLength
		return float64(steps) / float64(totalPathLength)
	default:
		return 0
	}
}

// normalize maps two non-negative scores to (a-b)/(a+b) in [-1,1].
func normalize(a, b float64) float64 {
	total := a + b
	if total == 0 {
		return 0
	}
	return (a - b) / total
}

// RankedMove pairs a legal move with its look-ahead score.
type RankedMove struct {
	Move  LegalMove `json:"move"`
	Score float64   `json:"score"`
}

// RankMoves applies each move to a private clone and ranks the moves by
// the resulting score for the player on turn, best first. The input
// state is never mutated.
func (e *Engine) RankMoves(g *GameState, moves []LegalMove) []RankedMove {
	mover := g.CurrentPlayer().Color
	ranked := make([]RankedMove, 0, len(moves))
	for _, m := range moves {
		sim := g.Clone()
		if err := sim.Apply(m); err != nil {
			continue
		}
		ranked = append(ranked, RankedMove{Move: m, Score: e.Evaluate(sim, mover)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// movePriority orders move types for the greedy policy; higher is
// preferred.
var movePriority = map[MoveType]int{
	MoveFinish:       5,
	MoveCapture:      4,
	MoveCaptureEnter: 3,
	MoveEnter:        2,
	MoveHomeColumn:   1,
	MoveNormal:       0,
}

// ChooseMove selects one move from a non-empty legal set according to a
// difficulty policy: Easy picks uniformly at random, Medium picks
// greedily by move type, Hard picks the best-ranked move.
func (e *Engine) ChooseMove(rng *rand.Rand, g *GameState, moves []LegalMove, d Difficulty) LegalMove {
	switch d {
	case Easy:
		return moves[rng.Intn(len(moves))]
	case Medium:
		best := moves[0]
		for _, m := range moves[1:] {
			if movePriority[m.Type] > movePriority[best.Type] ||
				(movePriority[m.Type] == movePriority[best.Type] && m.Value > best.Value) {
				best = m
			}
		}
		return best
	default:
		ranked := e.RankMoves(g, moves)
		if len(ranked) == 0 {
			return moves[0]
		}
		return ranked[0].Move
	}
}
