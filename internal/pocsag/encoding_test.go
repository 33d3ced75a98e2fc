package pocsag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlphaNumEncodePassesThroughASCII(t *testing.T) {
	assert.Equal(t, byte('A'), AlphaNum.Encode('A'))
	assert.Equal(t, byte(0x3F), AlphaNum.Encode(200))
}

func TestNumericEncodeDigitsAndPunctuation(t *testing.T) {
	assert.Equal(t, byte(0), Numeric.Encode('0'))
	assert.Equal(t, byte(9), Numeric.Encode('9'))
	assert.Equal(t, byte(0xA), Numeric.Encode('*'))
	assert.Equal(t, byte(0xB), Numeric.Encode('U'))
	assert.Equal(t, byte(0xC), Numeric.Encode(' '))
	assert.Equal(t, byte(0xD), Numeric.Encode('-'))
	assert.Equal(t, byte(0xE), Numeric.Encode(')'))
	assert.Equal(t, byte(0xF), Numeric.Encode('('))
	assert.Equal(t, byte(0xC), Numeric.Encode('?'), "unknown symbols fall back to the space/trailing code")
}

func TestSymbolBitUsesTrailingPastEndOfData(t *testing.T) {
	data := []byte("1")
	// idx 0 is within data; idx 1 is past the end and must use Trailing (0xC).
	for n := 0; n < 4; n++ {
		assert.Equal(t, (Numeric.Trailing>>uint(n))&1, Numeric.symbolBit(data, 1, n))
	}
}
