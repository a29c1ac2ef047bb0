package telnet

import (
	"bytes"
	"fmt"

	"github.com/rs/zerolog"
)

// State names the position of a Decoder within a TELNET command sequence.
type State int

const (
	StateText State = 0 + iota
	StateEscapedIAC
	StateCommand
	StateOption
	StateSubnegotiation
	StateSubnegotiationIAC
	StatePoisoned
)

var stateNames = [...]string{
	StateText:              "text",
	StateEscapedIAC:        "escaped-iac",
	StateCommand:           "command",
	StateOption:            "option",
	StateSubnegotiation:    "subnegotiation",
	StateSubnegotiationIAC: "subnegotiation-iac",
	StatePoisoned:          "poisoned",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// decodeState is one of the state* types below. Data that only makes sense
// in one state, like the pending negotiation command, lives in that variant.
type decodeState interface {
	state() State
}

type (
	stateText              struct{}
	stateEscapedIAC        struct{}
	stateCommand           struct{}
	stateOption            struct{ cmd byte }
	stateSubnegotiation    struct{}
	stateSubnegotiationIAC struct{}
	statePoisoned          struct{}
)

func (stateText) state() State              { return StateText }
func (stateEscapedIAC) state() State        { return StateEscapedIAC }
func (stateCommand) state() State           { return StateCommand }
func (stateOption) state() State            { return StateOption }
func (stateSubnegotiation) state() State    { return StateSubnegotiation }
func (stateSubnegotiationIAC) state() State { return StateSubnegotiationIAC }
func (statePoisoned) state() State          { return StatePoisoned }

// Decoder splits a TELNET byte stream into Text and Control items. Input is
// supplied one chunk at a time:
//
//	d.Begin(chunk)
//	for d.HasMore() {
//		if text, ok := d.NextText(); ok { ... }
//		if ctl, ok := d.NextControl(); ok { ... }
//	}
//	err := d.End()
//
// Commands may be split across chunks at any byte; the decoder carries its
// state from one cycle to the next. A Decoder must not be used from more than
// one goroutine at a time.
type Decoder struct {
	ds     decodeState
	sb     payloadBuffer
	chunk  []byte
	cursor int
	active bool
	log    zerolog.Logger
}

// DecoderOption configures a Decoder in NewDecoder.
type DecoderOption func(*Decoder)

// WithLogger sets the logger used to report recovered framing errors.
func WithLogger(logger zerolog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.log = logger
	}
}

// NewDecoder returns a Decoder that keeps at most capacity bytes of each
// subnegotiation payload. A capacity of zero selects DefaultCapacity.
func NewDecoder(capacity int, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		ds:  stateText{},
		sb:  newPayloadBuffer(capacity),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Decoder) State() State { return d.ds.state() }

// Capacity is the maximum subnegotiation payload length, not counting the
// option code.
func (d *Decoder) Capacity() int { return d.sb.capacity() }

func (d *Decoder) poisoned() bool {
	_, ok := d.ds.(statePoisoned)
	return ok
}

func (d *Decoder) poison(reason string) {
	d.log.Error().Str("state", d.State().String()).Msg(reason)
	d.ds = statePoisoned{}
}

// Begin attaches p as the chunk to decode.
func (d *Decoder) Begin(p []byte) error {
	if d.active {
		return ErrAlreadyActive
	}
	d.chunk, d.cursor, d.active = p, 0, true
	return nil
}

// HasMore reports whether NextText or NextControl can make progress.
func (d *Decoder) HasMore() bool {
	return !d.poisoned() && d.cursor < len(d.chunk)
}

// NextText returns the data bytes up to the next IAC or the end of the chunk.
// It returns false when the decoder is inside a command; call NextControl.
func (d *Decoder) NextText() (Text, bool) {
	if !d.HasMore() {
		return nil, false
	}
	start, scan := d.cursor, d.cursor
	switch d.ds.(type) {
	case stateText:
	case stateEscapedIAC:
		// the cursor sits on the second IAC of the pair, which is the data
		scan++
		d.ds = stateText{}
	default:
		return nil, false
	}
	end := len(d.chunk)
	d.cursor = end
	if i := bytes.IndexByte(d.chunk[scan:], IAC); i >= 0 {
		end = scan + i
		d.cursor = end + 1
		d.ds = stateCommand{}
	}
	if end == start {
		return nil, false
	}
	return Text(d.chunk[start:end:end]), true
}

// NextControl consumes command bytes until it has a complete Control, the
// chunk runs out, or the stream returns to text.
func (d *Decoder) NextControl() (Control, bool) {
	for d.HasMore() {
		switch s := d.ds.(type) {
		case stateText, stateEscapedIAC:
			return Control{}, false
		case stateCommand:
			switch b := d.chunk[d.cursor]; b {
			case IAC:
				// left in place for NextText
				d.ds = stateEscapedIAC{}
				return Control{}, false
			case WILL, WONT, DO, DONT:
				d.cursor++
				d.ds = stateOption{cmd: b}
			case SB:
				d.cursor++
				d.sb.reset()
				d.ds = stateSubnegotiation{}
			case SE:
				d.cursor++
				d.log.Warn().Msg("discarding IAC SE outside of subnegotiation")
				d.ds = stateText{}
			default:
				d.cursor++
				d.ds = stateText{}
				return Control{Command: b}, true
			}
		case stateOption:
			opt := d.chunk[d.cursor]
			d.cursor++
			d.ds = stateText{}
			return Control{Command: s.cmd, Option: opt}, true
		case stateSubnegotiation:
			b := d.chunk[d.cursor]
			d.cursor++
			if b == IAC {
				d.ds = stateSubnegotiationIAC{}
			} else {
				d.sb.push(b)
			}
		case stateSubnegotiationIAC:
			b := d.chunk[d.cursor]
			d.cursor++
			switch b {
			case IAC:
				d.sb.push(IAC)
				d.ds = stateSubnegotiation{}
			case SE:
				d.ds = stateText{}
				return d.subnegotiation(), true
			default:
				d.log.Debug().Uint8("byte", b).Msg("unexpected IAC sequence in subnegotiation")
				d.sb.push(IAC)
				d.sb.push(b)
				d.ds = stateSubnegotiation{}
			}
		default:
			d.poison(fmt.Sprintf("invalid decoder state %T", s))
			return Control{}, false
		}
	}
	return Control{}, false
}

func (d *Decoder) subnegotiation() Control {
	c := Control{
		Command:   SB,
		Option:    d.sb.option(),
		Payload:   d.sb.payload(),
		Truncated: d.sb.dropped > 0,
	}
	if c.Truncated {
		d.log.Debug().
			Str("option", OptionName(c.Option)).
			Int("dropped", d.sb.dropped).
			Msg("subnegotiation truncated")
	}
	return c
}

// Next returns the next Text or Control item in the chunk.
func (d *Decoder) Next() (Item, bool) {
	for d.HasMore() {
		if text, ok := d.NextText(); ok {
			return text, true
		}
		if ctl, ok := d.NextControl(); ok {
			return ctl, true
		}
	}
	return nil, false
}

// End releases the current chunk. Text items returned since Begin must not
// be used afterwards.
func (d *Decoder) End() error {
	remaining := len(d.chunk) - d.cursor
	d.chunk, d.cursor, d.active = nil, 0, false
	if d.poisoned() {
		return ErrPoisoned
	}
	if remaining > 0 {
		d.poison("chunk ended with unconsumed data")
		return fmt.Errorf("%w: %d bytes remaining", ErrUnconsumedData, remaining)
	}
	return nil
}

// Decode runs one Begin/End cycle over p, passing every item to fn. If fn
// returns an error decoding stops, the rest of p is left unconsumed and the
// error is returned.
func (d *Decoder) Decode(p []byte, fn func(Item) error) (err error) {
	if err = d.Begin(p); err != nil {
		return
	}
	defer func() {
		if endErr := d.End(); err == nil {
			err = endErr
		}
	}()
	for it, ok := d.Next(); ok; it, ok = d.Next() {
		if err = fn(it); err != nil {
			return
		}
	}
	return
}

// AppendItems decodes p and appends a copy of every item to dst.
func (d *Decoder) AppendItems(dst []Item, p []byte) ([]Item, error) {
	err := d.Decode(p, func(it Item) error {
		dst = append(dst, Clone(it))
		return nil
	})
	return dst, err
}
