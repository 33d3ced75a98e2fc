package pocsag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(g *Generator) []uint32 {
	var out []uint32
	for {
		w, ok := g.Next()
		if !ok {
			return out
		}
		out = append(out, w)
	}
}

func TestGeneratorEmptyAlphaMessage(t *testing.T) {
	msg := &Message{RIC: 0x012345, Func: FuncAlpha, Type: AlphaNum}
	words := drain(NewGenerator(msg, nil))

	require.Len(t, words, 18+1+16)
	for i := 0; i < 18; i++ {
		assert.Equal(t, uint32(preambleWord), words[i])
	}
	assert.Equal(t, uint32(syncWord), words[18])

	target := 2 * int(msg.RIC&0b111)
	for i := 0; i < 16; i++ {
		w := words[19+i]
		if i == target {
			assert.Equal(t, uint32(0), w>>31, "address codeword must have flag bit clear")
			assert.Equal(t, uint32(msg.RIC)>>3, (w>>13)&0x3FFFF)
			assert.Equal(t, uint32(FuncAlpha), (w>>11)&0b11)
		} else {
			assert.Equal(t, uint32(idleWord), w, "position %d should be idle", i)
		}
	}
}

func TestGeneratorAddressPlacementDependsOnLow3RICBits(t *testing.T) {
	for ric := uint32(0); ric < 8; ric++ {
		msg := &Message{RIC: ric, Func: FuncNumeric, Type: Numeric}
		words := drain(NewGenerator(msg, nil))
		batch := words[19:35]

		target := 2 * int(ric&0b111)
		for i, w := range batch {
			if i == target {
				assert.Equal(t, uint32(0), w>>31)
			} else {
				assert.Equal(t, uint32(idleWord), w)
			}
		}
	}
}

func TestGeneratorMessageWordFlagBit(t *testing.T) {
	msg := &Message{RIC: 0, Func: FuncNumeric, Type: Numeric, Data: []byte("1")}
	words := drain(NewGenerator(msg, nil))

	// Address codeword is at batch position 0 (index 19 overall); the next
	// codeword in the batch carries the message payload.
	msgWord := words[20]
	assert.Equal(t, uint32(1), msgWord>>31, "message codeword must have flag bit set")
}

func TestGeneratorNoTrailingSyncAfterCompleted(t *testing.T) {
	msg := &Message{RIC: 1, Func: FuncNumeric, Type: Numeric, Data: []byte("123456789012345678901234567890")}
	words := drain(NewGenerator(msg, nil))

	// The last batch must be padded to a full 16 codewords with idle words,
	// never cut short, and the iterator must end without one more sync word.
	assert.Zero(t, (len(words)-18)%17, "every batch after the preamble must be sync+16")
}

type chainingProvider struct {
	messages []*Message
	calls    []int
}

func (p *chainingProvider) Next(emitted int) *Message {
	p.calls = append(p.calls, emitted)
	if len(p.messages) == 0 {
		return nil
	}
	m := p.messages[0]
	p.messages = p.messages[1:]
	return m
}

func TestGeneratorChainsFollowOnMessages(t *testing.T) {
	second := &Message{RIC: 2, Func: FuncNumeric, Type: Numeric, Data: []byte("9")}
	provider := &chainingProvider{messages: []*Message{second}}

	first := &Message{RIC: 1, Func: FuncNumeric, Type: Numeric, Data: []byte("1")}
	words := drain(NewGenerator(first, provider))

	require.Len(t, provider.calls, 2, "provider should be asked once per completed message")
	// Everything fits in one batch: 18 preamble + 1 sync + 16 frame words, no second sync.
	assert.Len(t, words, 18+1+16)
}

func TestGeneratorProviderCalledWithCodewordCountNotMessageCount(t *testing.T) {
	// emitted counts every codeword returned so far (preamble, sync, address
	// and message words), so after this single message it is far above 1,
	// proving the counter tracks codewords, not completed messages.
	longData := make([]byte, 10) // 10 bytes * 7 bits / 20 bits per word = 4 codewords, still one batch
	for i := range longData {
		longData[i] = 'A'
	}
	provider := &chainingProvider{}
	msg := &Message{RIC: 0, Func: FuncAlpha, Type: AlphaNum, Data: longData}
	drain(NewGenerator(msg, provider))

	require.Len(t, provider.calls, 1)
	assert.Greater(t, provider.calls[0], 1, "emitted count must count codewords, not messages")
}

func TestGeneratorNilMessageCompletesImmediately(t *testing.T) {
	words := drain(NewGenerator(nil, nil))
	assert.Len(t, words, 18+1+16)
}
