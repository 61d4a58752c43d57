package engine

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// RolloutOptions controls rollout execution.
type RolloutOptions struct {
	Trials   int        // number of games to simulate (default 1296)
	Workers  int        // parallel workers (0 = GOMAXPROCS)
	Seed     int64      // RNG seed (0 = random)
	MaxTurns int        // abandon a trial after this many turns (default 1000)
	Policy   Difficulty // move-selection policy during playout (default Medium)
}

// RolloutResult reports win statistics from a Monte Carlo rollout.
type RolloutResult struct {
	// Per-color win probability over completed trials.
	WinProb [NumColors]float64

	// Statistics for the target color: mean win probability, standard
	// deviation of the per-trial outcome, and 95% confidence interval.
	TargetWin    float64
	TargetStdDev float64
	TargetCI     float64

	// TrialsCompleted counts trials that produced a winner. Trials
	// abandoned at the turn cap are counted in Unfinished and excluded
	// from all statistics above.
	TrialsCompleted int
	Unfinished      int
}

// DefaultRolloutOptions returns sensible defaults.
func DefaultRolloutOptions() RolloutOptions {
	return RolloutOptions{
		Trials:   1296,
		MaxTurns: 1000,
		Policy:   Medium,
	}
}

type rolloutPartial struct {
	wins       [NumColors]int
	outcomes   []float64 // per-trial outcome for the target color, finished trials only
	unfinished int
}

// Rollout estimates win probabilities by playing opts.Trials full games
// from the snapshot with random dice, using the configured policy for
// every player. The input state is never mutated; each trial plays out
// on a private clone.
func (e *Engine) Rollout(g *GameState, target Color, opts RolloutOptions) (*RolloutResult, error) {
	if g.Phase == PhaseFinished {
		return nil, ErrGameFinished
	}
	if g.PlayerByColor(target) == nil {
		return nil, fmt.Errorf("%w: color %s not in game", ErrInvalidConfig, target)
	}
	if opts.Trials <= 0 {
		opts.Trials = 1296
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Int63()
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 1000
	}

	trialsPerWorker := opts.Trials / opts.Workers
	extraTrials := opts.Trials % opts.Workers

	results := make(chan rolloutPartial, opts.Workers)
	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		workerTrials := trialsPerWorker
		if i < extraTrials {
			workerTrials++
		}
		if workerTrials == 0 {
			continue
		}
		wg.Add(1)
		go func(trials int, seed int64) {
			defer wg.Done()
			results <- e.rolloutWorker(g, target, trials, seed, opts)
		}(workerTrials, opts.Seed+int64(i)*1000003)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	res := &RolloutResult{}
	var outcomes []float64
	for pr := range results {
		for c := 0; c < NumColors; c++ {
			res.WinProb[c] += float64(pr.wins[c])
		}
		outcomes = append(outcomes, pr.outcomes...)
		res.Unfinished += pr.unfinished
	}

	res.TrialsCompleted = len(outcomes)
	if res.TrialsCompleted == 0 {
		return res, nil
	}
	for c := 0; c < NumColors; c++ {
		res.WinProb[c] /= float64(res.TrialsCompleted)
	}
	res.TargetWin = stat.Mean(outcomes, nil)
	res.TargetStdDev = stat.StdDev(outcomes, nil)
	res.TargetCI = 1.96 * res.TargetStdDev / math.Sqrt(float64(res.TrialsCompleted))
	return res, nil
}

func (e *Engine) rolloutWorker(g *GameState, target Color, trials int, seed int64, opts RolloutOptions) rolloutPartial {
	rng := rand.New(rand.NewSource(seed))
	pr := rolloutPartial{outcomes: make([]float64, 0, trials)}

	for i := 0; i < trials; i++ {
		winner, finished := e.playOutGame(g, rng, opts)
		if !finished {
			pr.unfinished++
			continue
		}
		pr.wins[winner]++
		if winner == target {
			pr.outcomes = append(pr.outcomes, 1)
		} else {
			pr.outcomes = append(pr.outcomes, 0)
		}
	}
	return pr
}

// playOutGame plays one game to completion on a private clone.
func (e *Engine) playOutGame(g *GameState, rng *rand.Rand, opts RolloutOptions) (Color, bool) {
	sim := g.Clone()
	for sim.Phase != PhaseFinished && sim.Turn <= opts.MaxTurns {
		switch sim.Phase {
		case PhaseRolling:
			dice := DiceResult{Die1: rng.Intn(6) + 1, Die2: rng.Intn(6) + 1}
			if _, err := sim.Roll(dice); err != nil {
				return 0, false
			}
		case PhaseMoving:
			moves := sim.LegalMoves()
			if len(moves) == 0 {
				sim.AdvanceTurn()
				continue
			}
			move := e.ChooseMove(rng, sim, moves, opts.Policy)
			if err := sim.Apply(move); err != nil {
				return 0, false
			}
		default:
			return 0, false
		}
	}
	if winner := sim.CheckWinner(); winner != nil {
		return winner.Color, true
	}
	return 0, false
}
