package engine

import "testing"

func TestEntrySquares(t *testing.T) {
	want := map[Color]int{Red: 0, Blue: 13, Green: 26, Yellow: 39}
	for c, pos := range want {
		if got := EntrySquare(c); got != pos {
			t.Errorf("EntrySquare(%s) = %d, want %d", c, got, pos)
		}
	}
}

func TestHomeEntrySquares(t *testing.T) {
	want := map[Color]int{Red: 51, Blue: 12, Green: 25, Yellow: 38}
	for c, pos := range want {
		if got := HomeEntrySquare(c); got != pos {
			t.Errorf("HomeEntrySquare(%s) = %d, want %d", c, got, pos)
		}
	}
}

func TestGlobalSafeSquaresExactSet(t *testing.T) {
	safe := map[int]bool{0: true, 8: true, 13: true, 21: true, 26: true, 34: true, 39: true, 47: true}
	for pos := 0; pos < TrackLength; pos++ {
		if got := IsGlobalSafe(pos); got != safe[pos] {
			t.Errorf("IsGlobalSafe(%d) = %v, want %v", pos, got, safe[pos])
		}
	}
	// Off-track positions are never globally safe.
	for _, pos := range []int{-1, TrackLength, HomeColumnStart + 2, FinalPosition} {
		if IsGlobalSafe(pos) {
			t.Errorf("IsGlobalSafe(%d) = true for off-track position", pos)
		}
	}
}

func TestAdvancePositionOnLoop(t *testing.T) {
	// Plain advancement stays on the loop while the home entry is not
	// crossed.
	dest, ok := AdvancePosition(10, 3, Red)
	if !ok || dest != 13 {
		t.Errorf("AdvancePosition(10, 3, red) = (%d, %v), want (13, true)", dest, ok)
	}

	// Wraparound for a color whose home entry lies before the wrap.
	dest, ok = AdvancePosition(50, 4, Blue)
	if !ok || dest != 2 {
		t.Errorf("AdvancePosition(50, 4, blue) = (%d, %v), want (2, true)", dest, ok)
	}
}

func TestAdvancePositionIntoHomeColumn(t *testing.T) {
	// Red's home entry is 51: from 49, 3 steps are 2 to the entry plus
	// 1 into the column.
	dest, ok := AdvancePosition(49, 3, Red)
	if !ok || dest != HomeColumnStart {
		t.Errorf("AdvancePosition(49, 3, red) = (%d, %v), want (%d, true)", dest, ok, HomeColumnStart)
	}

	// Exactly onto the final square.
	dest, ok = AdvancePosition(51, 6, Red)
	if !ok || dest != FinalPosition {
		t.Errorf("AdvancePosition(51, 6, red) = (%d, %v), want (%d, true)", dest, ok, FinalPosition)
	}
}

func TestAdvancePositionOvershoot(t *testing.T) {
	// From the home entry itself, 6 steps reach the final square; more
	// overshoots and is illegal.
	if _, ok := AdvancePosition(51, 7, Red); ok {
		t.Error("AdvancePosition(51, 7, red) should overshoot")
	}
	if _, ok := AdvancePosition(12, 7, Blue); ok {
		t.Error("AdvancePosition(12, 7, blue) should overshoot")
	}
}

func TestAdvancePositionPerColorOffsets(t *testing.T) {
	// Each color turns into its own column, never another's.
	for c := Color(0); c < NumColors; c++ {
		entry := HomeEntrySquare(c)
		dest, ok := AdvancePosition(entry, 1, c)
		if !ok || dest != HomeColumnStart {
			t.Errorf("%s: AdvancePosition(%d, 1) = (%d, %v), want (%d, true)",
				c, entry, dest, ok, HomeColumnStart)
		}
		// A different color passes straight over that square.
		other := (c + 1) % NumColors
		dest, ok = AdvancePosition(entry, 1, other)
		if !ok || dest != (entry+1)%TrackLength {
			t.Errorf("%s over %s home entry: got (%d, %v)", other, c, dest, ok)
		}
	}
}
