package telnet

import (
	"bytes"
	"fmt"
)

// Item is a single unit of decoded input: either Text or Control.
type Item interface {
	isItem()
}

// Text is a run of data bytes. It aliases the chunk passed to Begin and is
// only valid until the matching call to End.
type Text []byte

func (Text) isItem() {}

// Control is a TELNET command. For WILL/WONT/DO/DONT the Option field holds
// the option code, for SB it holds the first byte of the subnegotiation and
// Payload holds the rest. Payload aliases the decoder's subnegotiation buffer
// and is overwritten by the next subnegotiation.
type Control struct {
	Command   byte
	Option    byte
	Payload   []byte
	Truncated bool
}

func (Control) isItem() {}

func (c Control) IsNegotiation() bool {
	switch c.Command {
	case WILL, WONT, DO, DONT:
		return true
	}
	return false
}

func (c Control) IsSubnegotiation() bool {
	return c.Command == SB
}

func (c Control) String() string {
	switch {
	case c.IsNegotiation():
		return fmt.Sprintf("IAC %s %s", CommandName(c.Command), OptionName(c.Option))
	case c.IsSubnegotiation():
		return fmt.Sprintf("IAC SB %s (%d bytes)", OptionName(c.Option), len(c.Payload))
	default:
		return "IAC " + CommandName(c.Command)
	}
}

// Clone returns a copy of it that does not alias any decoder memory.
func Clone(it Item) Item {
	switch t := it.(type) {
	case Text:
		return Text(bytes.Clone(t))
	case Control:
		if t.Payload != nil {
			t.Payload = bytes.Clone(t.Payload)
		}
		return t
	}
	return it
}
