package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/stesla/telnetd/internal/config"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
)

// Server accepts TELNET connections and runs a Session for each one.
type Server struct {
	cfg      config.Config
	logger   zerolog.Logger
	charset  encoding.Encoding
	sessions *Table

	mu sync.Mutex
	ln net.Listener
}

func New(cfg config.Config, logger zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	charset, err := LookupCharset(cfg.Charset)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		charset:  charset,
		sessions: NewTable(cfg.MaxConns),
	}, nil
}

func (s *Server) Sessions() *Table { return s.sessions }

// Addr is the listening address, or nil before Serve is called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or ln is closed,
// then closes every session and waits for them to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("started")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		ln.Close()
		s.closeAll()
		return nil
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return err
				}
				s.logger.Error().Err(err).Msg("error accepting connection")
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					continue
				}
				return err
			}
			g.Go(func() error {
				s.handle(ctx, conn)
				return nil
			})
		}
	})

	err := g.Wait()
	s.logger.Info().Msg("stopped")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) closeAll() {
	s.sessions.Each(func(sess *Session) bool {
		sess.Close()
		return true
	})
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	sess := newSession(conn, s.cfg.ReadSize)
	if _, err := s.sessions.Add(sess); err != nil {
		s.logger.Warn().Str("peer", conn.RemoteAddr().String()).Err(err).Msg("connection rejected")
		conn.Close()
		return
	}
	defer s.sessions.Remove(sess.ID)
	defer sess.Close()

	sess.setup(s.cfg.Capacity, s.charset, s.logger)
	logger := sess.Logger()
	(&LogHandler{Logger: logger}).Register(sess)
	if s.cfg.Echo {
		EchoHandler{}.Register(sess)
	}

	// a session added after shutdown began was missed by closeAll
	if ctx.Err() != nil {
		return
	}

	logger.Debug().Msg("connected")
	err := sess.run(ctx)
	log := logger.Debug()
	if err != nil {
		log = logger.Warn().Err(err)
	}
	log.Str("in", humanize.Bytes(sess.BytesIn())).
		Str("out", humanize.Bytes(sess.BytesOut())).
		Str("items", humanize.Comma(int64(sess.Items()))).
		Dur("duration", time.Since(sess.Connected)).
		Msg("disconnected")
}
