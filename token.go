package statengine

import (
	"crypto/rand"
	"fmt"
)

// TokenLength is the fixed wire width of a conversation Token.
const TokenLength = 16

// Token is the fixed-width opaque identifier carried on the wire to
// identify a multi-round conversation. Tokens compare byte-wise. GenerateToken
// does not special-case the zero Token; the random fill makes an all-zero
// result vanishingly unlikely.
type Token [TokenLength]byte

// buildVersion is the 24-bit build-version tag mixed into generated tokens:
// bytes 8, 10 and 12 are the random byte 2 XORed with its high, mid and low
// byte in turn. It identifies this engine's wire format revision, not a
// semantic version; changing it changes every token this build issues.
const buildVersion uint32 = 0x010203

func versionBytes() (hi, mid, lo byte) {
	return byte(buildVersion >> 16), byte(buildVersion >> 8), byte(buildVersion)
}

// GenerateToken derives a new Token: fill with random bytes, then overwrite
// byte 0 with attempt, byte 1 with the now-overwritten byte 0 XOR attempt
// (which always comes out zero — a quirk of the original wire format, kept
// for compatibility rather than because it buys anything), and bytes
// 8/10/12 with the original random byte 2 XOR the high/mid/low bytes of
// buildVersion. If seed is non-nil, byte 3 is overwritten with *seed,
// partitioning the token space across load-balanced peers.
//
// None of this is a security property: the fixed-offset overwrites cost
// seven bytes of entropy out of sixteen. Reproduce it exactly for wire
// compatibility, not because it's a good idea on its own.
func GenerateToken(attempt int, seed *uint8) (Token, error) {
	var t Token
	if _, err := rand.Read(t[:]); err != nil {
		return Token{}, fmt.Errorf("statengine: generate token: %w", err)
	}

	origByte2 := t[2]
	a := byte(attempt)

	t[0] = a
	t[1] = t[0] ^ a

	hi, mid, lo := versionBytes()
	t[8] = origByte2 ^ hi
	t[10] = origByte2 ^ mid
	t[12] = origByte2 ^ lo

	if seed != nil {
		t[3] = *seed
	}

	return t, nil
}
