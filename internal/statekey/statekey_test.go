package statekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeUnpackRoundTrip(t *testing.T) {
	var codes [NumTokens]uint8
	for i := range codes {
		// Spread codes across the full range, including word-boundary
		// spill positions.
		codes[i] = uint8((i * 7) % (CodeFinished + 1))
	}
	for turn := 0; turn < 4; turn++ {
		k, err := Make(turn, codes)
		require.NoError(t, err)

		gotTurn, gotCodes := k.Unpack()
		assert.Equal(t, turn, gotTurn)
		assert.Equal(t, codes, gotCodes)
	}
}

func TestMakeRejectsInvalidInput(t *testing.T) {
	var codes [NumTokens]uint8
	codes[3] = CodeFinished + 1
	_, err := Make(0, codes)
	assert.Error(t, err)

	_, err = Make(4, [NumTokens]uint8{})
	assert.Error(t, err)
	_, err = Make(-1, [NumTokens]uint8{})
	assert.Error(t, err)
}

func TestStringParseRoundTrip(t *testing.T) {
	var codes [NumTokens]uint8
	for i := range codes {
		codes[i] = uint8(i * 3)
	}
	k, err := Make(2, codes)
	require.NoError(t, err)

	text := k.String()
	back, err := Parse(text)
	require.NoError(t, err)
	assert.True(t, Equal(k, back))
}

func TestParseRejectsBadText(t *testing.T) {
	_, err := Parse("not base64!!!")
	assert.Error(t, err)

	// Valid base64 but wrong length.
	_, err = Parse("AAAA")
	assert.Error(t, err)
}

func TestDistinctStatesDistinctKeys(t *testing.T) {
	base, err := Make(0, [NumTokens]uint8{})
	require.NoError(t, err)

	var codes [NumTokens]uint8
	codes[0] = 1
	moved, err := Make(0, codes)
	require.NoError(t, err)
	assert.False(t, Equal(base, moved))

	turned, err := Make(1, [NumTokens]uint8{})
	require.NoError(t, err)
	assert.False(t, Equal(base, turned))

	// The high token slot sits at the top of the third word; make sure
	// its bits land somewhere.
	var last [NumTokens]uint8
	last[NumTokens-1] = CodeFinished
	top, err := Make(0, last)
	require.NoError(t, err)
	assert.False(t, Equal(base, top))
}
