// Package statekey implements a compact binary key for a full board
// snapshot. Keys are used for evaluation caching, duplicate detection and
// as a cheap state checksum during network synchronization.
package statekey

import (
	"encoding/base64"
	"fmt"
)

// NumTokens is the number of token slots a key encodes (4 colors x 4).
const NumTokens = 16

// Token placement codes. Each token contributes one 6-bit code:
//
//	0        in yard
//	1..52    main track square (code-1)
//	53..58   home column square (code-53)
//	59       finished
const (
	CodeYard     = 0
	CodeTrackLo  = 1
	CodeTrackHi  = 52
	CodeHomeLo   = 53
	CodeHomeHi   = 58
	CodeFinished = 59
)

// Key is a compact binary representation of a board snapshot: 16 token
// codes packed 6 bits each into the first three words, with the index of
// the player on turn in the low byte of the last word.
type Key struct {
	Data [4]uint32
}

// Make packs 16 token codes and the on-turn player index into a Key.
// Codes must be ordered color-major (all red tokens, then blue, green,
// yellow) so that equal snapshots always produce equal keys.
func Make(turn int, codes [NumTokens]uint8) (Key, error) {
	var k Key
	for i, c := range codes {
		if c > CodeFinished {
			return Key{}, fmt.Errorf("statekey: token %d has invalid code %d", i, c)
		}
		bit := i * 6
		word := bit / 32
		shift := uint(bit % 32)
		k.Data[word] |= uint32(c) << shift
		if shift > 26 {
			k.Data[word+1] |= uint32(c) >> (32 - shift)
		}
	}
	if turn < 0 || turn > 3 {
		return Key{}, fmt.Errorf("statekey: invalid turn index %d", turn)
	}
	k.Data[3] |= uint32(turn)
	return k, nil
}

// Unpack extracts the on-turn player index and the 16 token codes.
func (k Key) Unpack() (turn int, codes [NumTokens]uint8) {
	for i := 0; i < NumTokens; i++ {
		bit := i * 6
		word := bit / 32
		shift := uint(bit % 32)
		c := k.Data[word] >> shift
		if shift > 26 {
			c |= k.Data[word+1] << (32 - shift)
		}
		codes[i] = uint8(c & 0x3F)
	}
	return int(k.Data[3] & 0xFF), codes
}

// Equal reports whether two keys are identical.
func Equal(a, b Key) bool {
	return a.Data == b.Data
}

// String returns the key as unpadded base64, the text form used in API
// payloads and logs.
func (k Key) String() string {
	buf := make([]byte, 16)
	for i, w := range k.Data {
		buf[i*4] = byte(w)
		buf[i*4+1] = byte(w >> 8)
		buf[i*4+2] = byte(w >> 16)
		buf[i*4+3] = byte(w >> 24)
	}
	return base64.RawStdEncoding.EncodeToString(buf)
}

// Parse decodes the text form produced by String.
func Parse(s string) (Key, error) {
	buf, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("statekey: invalid key text: %w", err)
	}
	if len(buf) != 16 {
		return Key{}, fmt.Errorf("statekey: key text has %d bytes, want 16", len(buf))
	}
	var k Key
	for i := range k.Data {
		k.Data[i] = uint32(buf[i*4]) |
			uint32(buf[i*4+1])<<8 |
			uint32(buf[i*4+2])<<16 |
			uint32(buf[i*4+3])<<24
	}
	return k, nil
}
