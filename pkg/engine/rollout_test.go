package engine

import (
	"errors"
	"math"
	"testing"
)

func TestRolloutFromNearWin(t *testing.T) {
	e := NewEngine(EngineOptions{})
	g := newTestGame(t, Red, Blue)
	for i := 0; i < 3; i++ {
		placeToken(g, Red, i, Finished, FinalPosition)
	}
	placeToken(g, Red, 3, InHomeColumn, HomeColumnStart)

	res, err := e.Rollout(g, Red, RolloutOptions{Trials: 200, Workers: 2, Seed: 11})
	if err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	if res.TrialsCompleted != 200 {
		t.Errorf("trials completed = %d, want 200", res.TrialsCompleted)
	}
	if res.TargetWin < 0.9 {
		t.Errorf("red one square from winning: win prob %f, want >= 0.9", res.TargetWin)
	}
	if res.WinProb[Red]+res.WinProb[Blue] > 1+1e-9 {
		t.Errorf("win probabilities sum past 1: %v", res.WinProb)
	}
}

func TestRolloutDeterministicWithSeed(t *testing.T) {
	e := NewEngine(EngineOptions{})
	g := newTestGame(t, Red, Blue)

	a, err := e.Rollout(g, Red, RolloutOptions{Trials: 60, Workers: 3, Seed: 99})
	if err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	b, err := e.Rollout(g, Red, RolloutOptions{Trials: 60, Workers: 3, Seed: 99})
	if err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	if a.TargetWin != b.TargetWin || a.WinProb != b.WinProb {
		t.Errorf("seeded rollouts diverged: %f vs %f", a.TargetWin, b.TargetWin)
	}
}

func TestRolloutDoesNotMutateInput(t *testing.T) {
	e := NewEngine(EngineOptions{})
	g := newTestGame(t, Red, Blue)
	before := g.Key()

	if _, err := e.Rollout(g, Red, RolloutOptions{Trials: 20, Workers: 2, Seed: 5}); err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	if g.Key() != before || g.Phase != PhaseRolling || g.Turn != 1 {
		t.Error("rollout mutated the input state")
	}
}

func TestRolloutStatisticsConsistent(t *testing.T) {
	e := NewEngine(EngineOptions{})
	g := newTestGame(t, Red, Blue)

	res, err := e.Rollout(g, Red, RolloutOptions{Trials: 100, Workers: 4, Seed: 3})
	if err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	if res.TargetWin < 0 || res.TargetWin > 1 {
		t.Errorf("target win prob %f out of [0,1]", res.TargetWin)
	}
	if math.Abs(res.TargetWin-res.WinProb[Red]) > 1e-9 {
		t.Errorf("target win %f disagrees with per-color table %f", res.TargetWin, res.WinProb[Red])
	}
	if res.TargetCI < 0 {
		t.Errorf("confidence interval %f negative", res.TargetCI)
	}
}

func TestRolloutTurnCapExcludesAbandonedTrials(t *testing.T) {
	e := NewEngine(EngineOptions{})
	g := newTestGame(t, Red, Blue)

	// No game can be won in three turns, so every trial hits the cap.
	res, err := e.Rollout(g, Red, RolloutOptions{Trials: 20, Workers: 2, Seed: 7, MaxTurns: 3})
	if err != nil {
		t.Fatalf("Rollout: %v", err)
	}
	if res.Unfinished != 20 {
		t.Errorf("unfinished = %d, want 20", res.Unfinished)
	}
	if res.TrialsCompleted != 0 {
		t.Errorf("trials completed = %d, want 0", res.TrialsCompleted)
	}
	if res.TrialsCompleted+res.Unfinished != 20 {
		t.Errorf("completed+unfinished = %d, want 20", res.TrialsCompleted+res.Unfinished)
	}
	if res.TargetWin != 0 || res.WinProb != [NumColors]float64{} {
		t.Errorf("abandoned trials leaked into statistics: win=%f probs=%v", res.TargetWin, res.WinProb)
	}
}

func TestRolloutRejectsBadInput(t *testing.T) {
	e := NewEngine(EngineOptions{})
	g := newTestGame(t, Red, Blue)

	if _, err := e.Rollout(g, Green, RolloutOptions{Trials: 10}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("target not in game: err = %v, want ErrInvalidConfig", err)
	}

	g.Phase = PhaseFinished
	if _, err := e.Rollout(g, Red, RolloutOptions{Trials: 10}); !errors.Is(err, ErrGameFinished) {
		t.Errorf("finished game: err = %v, want ErrGameFinished", err)
	}
}
