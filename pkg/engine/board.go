// Package engine implements the deterministic rules engine for a
// four-player Parcheesi game: legal-move generation, move application,
// captures and blockades, turn control and win detection. Every function
// is a pure read of a caller-owned snapshot; the engine holds no shared
// state of its own.
package engine

// Board geometry. The main track is a shared 52-square loop; each color
// additionally owns a private 6-square home column leading to the center.
const (
	TrackLength      = 52
	HomeColumnLength = 6
	TokensPerPlayer  = 4

	// HomeColumnStart is the encoded position of the first home-column
	// square. Home columns use a normalized numbering shared by all
	// colors: 52 (entry) through 57 (final square before the center).
	HomeColumnStart = TrackLength
	FinalPosition   = TrackLength + HomeColumnLength - 1

	// YardPosition is the encoded position of a token in its yard.
	YardPosition = -1
)

// Color identifies one of the four fixed player colors.
type Color int

const (
	Red Color = iota
	Blue
	Green
	Yellow

	NumColors = 4
)

var colorNames = [NumColors]string{"red", "blue", "green", "yellow"}

func (c Color) String() string {
	if c < 0 || c >= NumColors {
		return "invalid"
	}
	return colorNames[c]
}

// Valid reports whether c is one of the four defined colors.
func (c Color) Valid() bool {
	return c >= 0 && c < NumColors
}

// Entry squares are spaced 13 apart on the loop; the home-column entry of
// a color is the square immediately before its entry square.
var (
	entrySquares     = [NumColors]int{0, 13, 26, 39}
	homeEntrySquares = [NumColors]int{51, 12, 25, 38}
)

// The 8 squares immune to capture, where tokens of any colors co-occupy
// peacefully.
var globalSafeSquares = [TrackLength]bool{
	0: true, 8: true, 13: true, 21: true, 26: true, 34: true, 39: true, 47: true,
}

// EntrySquare returns the track square where a color's tokens appear when
// leaving the yard.
func EntrySquare(c Color) int {
	return entrySquares[c]
}

// HomeEntrySquare returns the last main-track square before a color's
// private home column.
func HomeEntrySquare(c Color) int {
	return homeEntrySquares[c]
}

// IsGlobalSafe reports whether a main-track square is one of the 8 safe
// squares. Home-column positions are never capturable and always return
// false here; they are private to their color.
func IsGlobalSafe(pos int) bool {
	return pos >= 0 && pos < TrackLength && globalSafeSquares[pos]
}

// AdvancePosition computes the destination of a token of the given color
// moving steps squares forward from pos on the main track. The result is
// either a main-track square, or an encoded home-column position once the
// token passes its home-column entry. ok is false when the move would
// overshoot the final home-column square; such a move is illegal and the
// token must wait for a smaller roll.
func AdvancePosition(pos, steps int, c Color) (dest int, ok bool) {
	distToHome := (homeEntrySquares[c] - pos + TrackLength) % TrackLength
	if steps <= distToHome {
		return (pos + steps) % TrackLength, true
	}
	column := steps - distToHome - 1
	if column >= HomeColumnLength {
		return 0, false
	}
	return HomeColumnStart + column, true
}
