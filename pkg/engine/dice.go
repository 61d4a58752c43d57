package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// DiceResult is a single two-die roll. Immutable once produced.
type DiceResult struct {
	Die1 int `json:"die1"`
	Die2 int `json:"die2"`
}

// IsDouble reports whether both dice show the same value.
func (d DiceResult) IsDouble() bool {
	return d.Die1 == d.Die2
}

// Total returns the sum of both dice.
func (d DiceResult) Total() int {
	return d.Die1 + d.Die2
}

// Valid reports whether both dice are in [1,6].
func (d DiceResult) Valid() bool {
	return d.Die1 >= 1 && d.Die1 <= 6 && d.Die2 >= 1 && d.Die2 <= 6
}

// MoveValues resolves a roll into the ordered list of consumable move
// values: [d1, d2] for a plain roll, four values on a double.
func (d DiceResult) MoveValues() []int {
	if d.IsDouble() {
		return []int{d.Die1, d.Die2, d.Die1, d.Die2}
	}
	return []int{d.Die1, d.Die2}
}

func (d DiceResult) String() string {
	return fmt.Sprintf("%d-%d", d.Die1, d.Die2)
}

// Roller supplies dice rolls. The engine never rolls on its own; rolls
// are injected so that play, simulation and tests can all be seeded
// deterministically.
type Roller interface {
	Roll() DiceResult
}

type randRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a Roller backed by a seeded PRNG. A seed of 0 uses
// the current time. The returned Roller is safe for concurrent use.
func NewRoller(seed int64) Roller {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &randRoller{rng: rand.New(rand.NewSource(seed))}
}

func (r *randRoller) Roll() DiceResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return DiceResult{Die1: r.rng.Intn(6) + 1, Die2: r.rng.Intn(6) + 1}
}
