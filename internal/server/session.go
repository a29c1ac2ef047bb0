package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/stesla/telnetd/internal/event"
	"github.com/stesla/telnetd/internal/telnet"
	"golang.org/x/text/encoding"
)

const (
	EventText           event.Name = "telnet.text"
	EventCommand        event.Name = "telnet.command"
	EventNegotiation    event.Name = "telnet.negotiation"
	EventSubnegotiation event.Name = "telnet.subnegotiation"
)

// Events lists every event a Session dispatches. Event data is a
// telnet.Text or telnet.Control that is only valid while the listener runs.
var Events = []event.Name{EventText, EventCommand, EventNegotiation, EventSubnegotiation}

type contextKey int

const KeySession contextKey = 0

// SessionFromContext returns the session whose events are being dispatched,
// or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(KeySession).(*Session)
	return s
}

// Session is one client connection and its decoder.
type Session struct {
	event.Dispatcher

	ID        uint64
	Connected time.Time

	conn     net.Conn
	decoder  *telnet.Decoder
	charset  *encoding.Decoder
	logger   zerolog.Logger
	readSize int

	bytesIn  atomic.Uint64
	bytesOut atomic.Uint64
	items    atomic.Uint64
}

func newSession(conn net.Conn, readSize int) *Session {
	if readSize <= 0 {
		readSize = 128
	}
	return &Session{
		Dispatcher: event.NewDispatcher(),
		Connected:  time.Now(),
		conn:       conn,
		charset:    ASCII.NewDecoder(),
		logger:     zerolog.Nop(),
		readSize:   readSize,
	}
}

// setup must be called once the session has its id.
func (s *Session) setup(capacity int, enc encoding.Encoding, logger zerolog.Logger) {
	s.logger = logger.With().
		Uint64("session", s.ID).
		Str("peer", s.RemoteAddr().String()).
		Logger()
	s.decoder = telnet.NewDecoder(capacity, telnet.WithLogger(s.logger))
	if enc != nil {
		s.charset = enc.NewDecoder()
	}
}

func (s *Session) Logger() zerolog.Logger { return s.logger }

func (s *Session) RemoteAddr() net.Addr {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr
	}
	return noAddr{}
}

func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) BytesIn() uint64  { return s.bytesIn.Load() }
func (s *Session) BytesOut() uint64 { return s.bytesOut.Load() }
func (s *Session) Items() uint64    { return s.items.Load() }

// DecodeText converts data bytes from the session's charset to a string.
func (s *Session) DecodeText(p []byte) string {
	out, err := s.charset.Bytes(p)
	if err != nil {
		return string(p)
	}
	return string(out)
}

// Write sends local text to the client. Line endings are translated to NVT
// form ("\n" as "\r\n", "\r" as "\r\x00") and IAC is doubled. On a short
// write n counts the bytes of p whose encoding was sent in full.
func (s *Session) Write(p []byte) (int, error) {
	buf := make([]byte, 0, 2*len(p))
	for _, c := range p {
		switch c {
		case telnet.IAC:
			buf = append(buf, telnet.IAC, telnet.IAC)
		case '\n':
			buf = append(buf, '\r', '\n')
		case '\r':
			buf = append(buf, '\r', '\x00')
		default:
			buf = append(buf, c)
		}
	}
	return s.writeEncoded(p, buf, func(c byte) int {
		switch c {
		case telnet.IAC, '\n', '\r':
			return 2
		}
		return 1
	})
}

// WriteNVT sends data that is already in NVT form, such as text decoded from
// the client, doubling only IAC.
func (s *Session) WriteNVT(p []byte) (int, error) {
	buf := make([]byte, 0, 2*len(p))
	for _, c := range p {
		if c == telnet.IAC {
			buf = append(buf, telnet.IAC, telnet.IAC)
		} else {
			buf = append(buf, c)
		}
	}
	return s.writeEncoded(p, buf, func(c byte) int {
		if c == telnet.IAC {
			return 2
		}
		return 1
	})
}

// writeEncoded writes buf, the encoding of p, and maps a short write back to
// the number of input bytes that were sent completely.
func (s *Session) writeEncoded(p, buf []byte, width func(byte) int) (n int, err error) {
	nw, err := s.conn.Write(buf)
	s.bytesOut.Add(uint64(nw))
	if err == nil {
		return len(p), nil
	}
	for _, c := range p {
		w := width(c)
		if nw < w {
			break
		}
		nw -= w
		n++
	}
	return n, err
}

// run reads from the connection until it is closed. Every decoded item is
// dispatched before the next read.
func (s *Session) run(ctx context.Context) error {
	ctx = context.WithValue(ctx, KeySession, s)
	buf := make([]byte, s.readSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			s.bytesIn.Add(uint64(n))
			derr := s.decoder.Decode(buf[:n], func(it telnet.Item) error {
				return s.dispatch(ctx, it)
			})
			if derr != nil {
				return derr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (s *Session) dispatch(ctx context.Context, it telnet.Item) error {
	s.items.Add(1)
	switch t := it.(type) {
	case telnet.Text:
		return s.Dispatch(ctx, event.Event{Name: EventText, Data: t})
	case telnet.Control:
		name := EventCommand
		switch {
		case t.IsNegotiation():
			name = EventNegotiation
		case t.IsSubnegotiation():
			name = EventSubnegotiation
		}
		return s.Dispatch(ctx, event.Event{Name: name, Data: t})
	}
	return nil
}

type noAddr struct{}

func (noAddr) Network() string { return "none" }
func (noAddr) String() string  { return "unknown" }
