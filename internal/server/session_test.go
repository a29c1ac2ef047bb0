package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stesla/telnetd/internal/event"
	"github.com/stesla/telnetd/internal/telnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Listen(_ context.Context, ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.Event{Name: ev.Name, Data: telnet.Clone(ev.Data.(telnet.Item))})
	return nil
}

func (r *recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events
}

func newTestSession(t *testing.T, readSize int) (*Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	s := newSession(server, readSize)
	s.ID = 1
	s.setup(0, ASCII, zerolog.Nop())
	return s, client
}

func runSession(s *Session) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.run(context.Background()) }()
	return done
}

func TestSessionDispatch(t *testing.T) {
	s, client := newTestSession(t, 4)
	rec := &recorder{}
	for _, name := range Events {
		s.Listen(name, rec)
	}
	done := runSession(s)

	input := []byte{'h', 'i', telnet.IAC, telnet.WILL, telnet.Echo,
		telnet.IAC, telnet.SB, telnet.NAWS, 0, 80, 0, 24, telnet.IAC, telnet.SE,
		telnet.IAC, telnet.AYT, '!'}
	_, err := client.Write(input)
	require.NoError(t, err)
	require.NoError(t, client.Close())
	require.NoError(t, <-done)

	assert.Equal(t, []event.Event{
		{Name: EventText, Data: telnet.Text("hi")},
		{Name: EventNegotiation, Data: telnet.Control{Command: telnet.WILL, Option: telnet.Echo}},
		{Name: EventSubnegotiation, Data: telnet.Control{Command: telnet.SB, Option: telnet.NAWS, Payload: []byte{0, 80, 0, 24}}},
		{Name: EventCommand, Data: telnet.Control{Command: telnet.AYT}},
		{Name: EventText, Data: telnet.Text("!")},
	}, rec.Events())
	assert.Equal(t, uint64(len(input)), s.BytesIn())
	assert.Equal(t, uint64(5), s.Items())
}

func TestSessionListenerError(t *testing.T) {
	boom := errors.New("boom")
	s, client := newTestSession(t, 16)
	s.ListenFunc(EventText, func(context.Context, event.Event) error {
		return boom
	})
	done := runSession(s)

	_, err := client.Write([]byte("abc"))
	require.NoError(t, err)
	require.ErrorIs(t, <-done, boom)
}

func TestSessionEcho(t *testing.T) {
	s, client := newTestSession(t, 16)
	EchoHandler{}.Register(s)
	done := runSession(s)

	go client.Write([]byte{'a', telnet.IAC, telnet.IAC, telnet.IAC, telnet.NOP, 'b'})

	buf := make([]byte, 4)
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', telnet.IAC, telnet.IAC, 'b'}, buf)

	require.NoError(t, client.Close())
	require.NoError(t, <-done)
	assert.Equal(t, uint64(4), s.BytesOut())
}

func TestSessionWrite(t *testing.T) {
	var tests = []struct {
		name     string
		input    []byte
		expected []byte
	}{
		{"text", []byte("foo"), []byte("foo")},
		{"iac", []byte{'a', telnet.IAC, 'b'}, []byte{'a', telnet.IAC, telnet.IAC, 'b'}},
		{"newline", []byte("a\n"), []byte("a\r\n")},
		{"carriage return", []byte("a\rb"), []byte("a\r\x00b")},
		{"mixed", []byte("a\n\rb\xff"), []byte{'a', '\r', '\n', '\r', 0, 'b', telnet.IAC, telnet.IAC}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, client := newTestSession(t, 16)
			written := make(chan int, 1)
			go func() {
				n, _ := s.Write(test.input)
				written <- n
			}()
			buf := make([]byte, len(test.expected))
			_, err := io.ReadFull(client, buf)
			require.NoError(t, err)
			assert.Equal(t, test.expected, buf)
			assert.Equal(t, len(test.input), <-written)
		})
	}
}

// shortConn accepts limit bytes of each write and then fails.
type shortConn struct {
	net.Conn
	limit int
}

func (c shortConn) Write(p []byte) (int, error) {
	if len(p) > c.limit {
		return c.limit, io.ErrShortWrite
	}
	return len(p), nil
}

func TestSessionShortWrite(t *testing.T) {
	var tests = []struct {
		name     string
		write    func(*Session, []byte) (int, error)
		input    []byte
		limit    int
		expected int
	}{
		{"write newline", (*Session).Write, []byte("a\nb"), 2, 1},
		{"write after newline", (*Session).Write, []byte("a\nb"), 3, 2},
		{"write iac", (*Session).Write, []byte{'a', telnet.IAC, 'b'}, 3, 2},
		{"write nothing", (*Session).Write, []byte("\r\n"), 0, 0},
		{"nvt iac", (*Session).WriteNVT, []byte{'a', telnet.IAC, 'b'}, 2, 1},
		{"nvt newline", (*Session).WriteNVT, []byte("a\r\nb"), 3, 3},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newSession(shortConn{limit: test.limit}, 0)
			n, err := test.write(s, test.input)
			require.ErrorIs(t, err, io.ErrShortWrite)
			assert.Equal(t, test.expected, n)
			assert.Equal(t, uint64(test.limit), s.BytesOut())
		})
	}
}

func TestSessionFromContext(t *testing.T) {
	assert.Nil(t, SessionFromContext(context.Background()))
	s := &Session{}
	assert.Same(t, s, SessionFromContext(context.WithValue(context.Background(), KeySession, s)))
}
