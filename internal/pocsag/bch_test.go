package pocsag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func popcount32(w uint32) int {
	n := 0
	for w != 0 {
		n += int(w & 1)
		w >>= 1
	}
	return n
}

func TestFinalizeCodewordEvenParity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		top21 := rapid.Uint32Range(0, (1<<21)-1).Draw(t, "top21")
		flag := rapid.Uint32Range(0, 1).Draw(t, "flag")
		w := (flag << 31) | (top21 << 11)

		out := finalizeCodeword(w)

		assert.Zero(t, popcount32(out)%2, "codeword must have even parity: %032b", out)
		assert.Equal(t, w&0xFFFFF800, out&0xFFFFF800, "finalizeCodeword must not touch the top 21 bits")
	})
}

func TestFinalizeCodewordDeterministic(t *testing.T) {
	assert.Equal(t, finalizeCodeword(0), finalizeCodeword(0))
	a := finalizeCodeword(0x80000000)
	b := finalizeCodeword(0x80000000)
	assert.Equal(t, a, b)
}

func TestIdleAndSyncWordsHaveEvenParity(t *testing.T) {
	assert.Zero(t, popcount32(idleWord)%2)
	assert.Zero(t, popcount32(syncWord)%2)
}
