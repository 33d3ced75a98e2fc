package pocsag

const (
	preambleWord = 0xAAAAAAAA
	syncWord     = 0x7CD215D8
	idleWord     = 0x7A89C197

	preambleLength    = 18
	codewordsPerBatch = 16
)

// MessageProvider supplies follow-on messages to a Generator while it still
// has room in the current batch. emitted is the number of codewords the
// generator has produced so far for the in-progress transmission; a
// provider may use it to refuse further chaining once the remaining slot
// budget can no longer guarantee the new message finishes. Returning nil
// ends the transmission after the in-flight batch drains.
type MessageProvider interface {
	Next(emitted int) *Message
}

type genState int

const (
	statePreamble genState = iota
	stateAddress
	stateMessageWord
	stateCompleted
)

// Generator is a single-pass, non-restartable iterator of 32-bit POCSAG
// codewords for one or more chained messages. Construct with NewGenerator
// and drain with Next until it reports done.
type Generator struct {
	state         genState
	codewordsLeft int

	provider MessageProvider
	total    int // codewords returned so far, including the one about to be returned

	msg      *Message
	encoding Encoding
	pos      int // bit offset into msg.Data's symbol stream
}

// NewGenerator starts a generator for msg, pulling any follow-on messages
// from provider. provider may be nil if the caller never wants chaining
// (the generator then simply finishes its batch after msg completes).
func NewGenerator(msg *Message, provider MessageProvider) *Generator {
	return &Generator{
		state:         statePreamble,
		codewordsLeft: preambleLength,
		provider:      provider,
		msg:           msg,
	}
}

// Next produces the next codeword. The second return value is false once
// the generator is fully drained; the caller must stop calling Next at that point.
func (g *Generator) Next() (uint32, bool) {
	if g.codewordsLeft == 0 && g.state == stateCompleted {
		return 0, false
	}
	g.total++

	if g.codewordsLeft == 0 {
		g.codewordsLeft = codewordsPerBatch
		if g.state == statePreamble {
			g.beginMessage()
		}
		return syncWord, true
	}

	switch g.state {
	case statePreamble:
		g.codewordsLeft--
		return preambleWord, true

	case stateAddress:
		return g.emitAddress(), true

	case stateMessageWord:
		return g.emitMessageWord(), true

	default: // stateCompleted
		g.codewordsLeft--
		return idleWord, true
	}
}

// beginMessage moves from Preamble into AddressWord for g.msg, or straight
// to Completed if there is no message at all (an empty provider chain). It
// runs at the sync transition following the preamble, not at the moment the
// preamble counter reaches zero - so an empty message set still flushes the
// sync word and a full idle batch instead of cutting off after the preamble.
func (g *Generator) beginMessage() {
	if g.msg == nil {
		g.state = stateCompleted
		return
	}
	g.state = stateAddress
}

func (g *Generator) batchPosition() int {
	return codewordsPerBatch - g.codewordsLeft
}

func (g *Generator) emitAddress() uint32 {
	pos := g.batchPosition()
	g.codewordsLeft--

	target := 2 * int(g.msg.RIC&0b111)
	if pos != target {
		return idleWord
	}

	addr := (g.msg.RIC & 0x001FFFF8) << 10
	fn := (uint32(g.msg.Func) & 0b11) << 11
	word := finalizeCodeword(addr | fn)

	g.encoding = encodingFor(g.msg.Type)
	g.pos = 0
	if len(g.msg.Data) == 0 {
		g.advanceMessage()
	} else {
		g.state = stateMessageWord
	}
	return word
}

func (g *Generator) emitMessageWord() uint32 {
	g.codewordsLeft--

	var payload uint32
	for range 20 {
		idx := g.pos / g.encoding.Bits
		n := g.pos % g.encoding.Bits
		bit := g.encoding.symbolBit(g.msg.Data, idx, n)
		payload = (payload << 1) | uint32(bit)
		g.pos++
	}

	done := g.pos >= len(g.msg.Data)*g.encoding.Bits
	word := finalizeCodeword(0x80000000 | (payload << 11))

	if done {
		g.advanceMessage()
	}
	return word
}

// advanceMessage is called whenever the in-progress message is fully
// packed (or had no data at all). If the current batch still has room, it
// asks the provider for another message to chain into the same
// transmission; otherwise the transmission completes with this batch.
func (g *Generator) advanceMessage() {
	var next *Message
	if g.provider != nil && g.codewordsLeft > 0 {
		next = g.provider.Next(g.total)
	}

	g.msg = next
	if g.msg == nil {
		g.state = stateCompleted
		return
	}
	g.state = stateAddress
}
