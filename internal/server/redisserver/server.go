package redisserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/respkv/internal/core/service"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/cmap"
)

// NilReply selects the reply for a missing key in GET-style commands.
type NilReply string

const (
	NilReplyArray NilReply = "array" // *-1
	NilReplyBulk  NilReply = "bulk"  // $-1
)

// DelReply selects the reply of DEL.
type DelReply string

const (
	DelReplyOK    DelReply = "ok"    // bulk "OK"
	DelReplyCount DelReply = "count" // number of keys removed
)

// Config holds the protocol server configuration.
type Config struct {
	// Address is the TCP listen address.
	Address string
	// IdleTimeout closes a connection that sends nothing for this long.
	IdleTimeout time.Duration
	// WriteTimeout bounds flushing the replies of one read.
	WriteTimeout time.Duration
	// ReadBufferSize is the size of each socket read.
	ReadBufferSize int
	// RateLimit is the maximum number of commands per second per client IP.
	// Set to 0 to disable rate limiting.
	RateLimit int
	// NilReply is the missing-key reply of GET, GETEX, GETDEL and MGET.
	NilReply NilReply
	// DelReply is the reply shape of DEL.
	DelReply DelReply
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:        "127.0.0.1:6379",
		IdleTimeout:    time.Hour,
		WriteTimeout:   30 * time.Second,
		ReadBufferSize: 1024,
		RateLimit:      0,
		NilReply:       NilReplyArray,
		DelReply:       DelReplyOK,
	}
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = d.IdleTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.NilReply == "" {
		out.NilReply = d.NilReply
	}
	if out.DelReply == "" {
		out.DelReply = d.DelReply
	}
	return &out
}

// Server represents the protocol server.
type Server struct {
	cfg     *Config
	inst    *service.Instance
	handler *CommandHandler
	logger  *slog.Logger
	metrics *metric.Registry

	mu      sync.Mutex
	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup

	clients *cmap.Map[string, *Conn]
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records command and connection metrics into m.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a server over inst. A nil cfg uses DefaultConfig.
func New(cfg *Config, inst *service.Instance, logger *slog.Logger, opts ...Option) *Server {
	if inst == nil {
		inst = service.NewInstance()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg.withDefaults(),
		inst:    inst,
		logger:  logger,
		clients: cmap.New[string, *Conn](),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = NewCommandHandler(s.cfg, inst, logger, s.metrics)
	s.handler.clientCount = s.clients.Count
	return s
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Address, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.running.Store(true)

	s.logger.Info("protocol server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start binds the listener and accepts connections in the background.
// A bind failure is returned to the caller.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Serve(ctx); err != nil {
			s.logger.Error("protocol server error", "error", err)
		}
	}()
	return nil
}

// ListenAndServe binds and serves until the listener is closed.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the accept loop on the bound listener.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("redisserver: Serve called before Listen")
	}
	return s.acceptLoop(ctx, ln)
}

// Shutdown stops accepting, closes every client connection and waits for
// their goroutines to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error

	s.mu.Lock()
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}
	s.mu.Unlock()

	// Unblock connections waiting in Read.
	for _, c := range s.clients.Values() {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return firstErr
}

// Running reports whether the listener is bound and accepting.
func (s *Server) Running() bool {
	return s.running.Load()
}

// ClientCount returns the number of open connections.
func (s *Server) ClientCount() int {
	return s.clients.Count()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Warn("accept failed, retrying", "error", err)
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return err
		}

		c := newConn(nc, s.cfg.ReadBufferSize)
		s.clients.Set(c.id, c)
		s.metrics.ClientConnected()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, c)
		}()
	}
}
