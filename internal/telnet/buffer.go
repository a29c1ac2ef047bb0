package telnet

// DefaultCapacity is the subnegotiation buffer size used when a decoder is
// created with a capacity of zero.
const DefaultCapacity = 48

// payloadBuffer collects the option code and up to a fixed number of payload
// bytes of a subnegotiation. Bytes that arrive once it is full are counted
// and dropped, so an oversized payload never stops the decoder from finding
// IAC SE.
type payloadBuffer struct {
	data    []byte
	dropped int
}

func newPayloadBuffer(capacity int) payloadBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// one extra byte for the option code
	return payloadBuffer{data: make([]byte, 0, capacity+1)}
}

// push stores c and reports whether it fit.
func (b *payloadBuffer) push(c byte) bool {
	if len(b.data) == cap(b.data) {
		b.dropped++
		return false
	}
	b.data = append(b.data, c)
	return true
}

func (b *payloadBuffer) reset() {
	b.data = b.data[:0]
	b.dropped = 0
}

// option is the first captured byte, or 0 for an empty subnegotiation.
func (b *payloadBuffer) option() byte {
	if len(b.data) == 0 {
		return 0
	}
	return b.data[0]
}

func (b *payloadBuffer) payload() []byte {
	if len(b.data) < 2 {
		return nil
	}
	return b.data[1:]
}

func (b *payloadBuffer) size() int     { return len(b.data) }
func (b *payloadBuffer) capacity() int { return cap(b.data) - 1 }
