package server

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stesla/telnetd/internal/event"
	"github.com/stesla/telnetd/internal/telnet"
)

// LogHandler writes every decoded item to its logger. Text is logged at
// trace level and commands at debug level.
type LogHandler struct {
	zerolog.Logger
}

func (h *LogHandler) Register(d event.Dispatcher) {
	for _, name := range Events {
		d.Listen(name, h)
	}
}

func (h *LogHandler) Unregister(d event.Dispatcher) {
	for _, name := range Events {
		d.RemoveListener(name, h)
	}
}

func (h *LogHandler) Listen(ctx context.Context, ev event.Event) error {
	var log *zerolog.Event
	switch t := ev.Data.(type) {
	case telnet.Text:
		log = h.Trace().Int("len", len(t))
		if !log.Enabled() {
			return nil
		}
		if s := SessionFromContext(ctx); s != nil {
			log.Str("text", s.DecodeText(t))
		} else {
			log.Bytes("text", t)
		}
	case telnet.Control:
		log = h.Debug().Str("command", telnet.CommandName(t.Command))
		if t.IsNegotiation() || t.IsSubnegotiation() {
			log.Str("option", telnet.OptionName(t.Option))
		}
		if t.IsSubnegotiation() {
			log.Hex("data", t.Payload).Bool("truncated", t.Truncated)
		}
	default:
		log = h.Debug().Interface("data", t)
	}
	log.Str("event", string(ev.Name)).Send()
	return nil
}

// EchoHandler writes text back to the client it came from. The text is
// already in NVT form, so only IAC is escaped.
type EchoHandler struct{}

func (EchoHandler) Register(d event.Dispatcher) {
	d.Listen(EventText, EchoHandler{})
}

func (EchoHandler) Listen(ctx context.Context, ev event.Event) error {
	text, ok := ev.Data.(telnet.Text)
	if !ok {
		return nil
	}
	s := SessionFromContext(ctx)
	if s == nil {
		return nil
	}
	_, err := s.WriteNVT(text)
	return err
}
