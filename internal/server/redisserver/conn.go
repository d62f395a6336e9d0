package redisserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/pkg/resp"
)

// ConnIDPrefix is prepended to every connection id.
const ConnIDPrefix = "conn-"

// ConnState is the position of a connection in its serve loop.
type ConnState int32

const (
	StateReading ConnState = iota
	StateDraining
	StateWriting
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateReading:
		return "reading"
	case StateDraining:
		return "draining"
	case StateWriting:
		return "writing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is one client connection.
type Conn struct {
	id       string
	netConn  net.Conn
	clientIP string
	bw       *bufio.Writer

	buf     []byte // bytes read but not yet framed
	need    int    // len(buf) required before the pending frame can be complete
	scratch []byte // one read slab

	db    uint64
	quit  bool
	state atomic.Int32

	closeOnce sync.Once
	closeErr  error
}

func newConn(nc net.Conn, readSize int) *Conn {
	if readSize <= 0 {
		readSize = DefaultConfig().ReadBufferSize
	}
	return &Conn{
		id:       ConnIDPrefix + strings.ToLower(ulid.Make().String()),
		netConn:  nc,
		clientIP: hostOf(nc.RemoteAddr()),
		bw:       bufio.NewWriter(nc),
		scratch:  make([]byte, readSize),
	}
}

// ID returns the connection id.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// DB returns the currently selected database id.
func (c *Conn) DB() uint64 {
	return c.db
}

// State returns the current state.
func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Conn) setState(s ConnState) {
	c.state.Store(int32(s))
}

// Close closes the underlying connection. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		c.closeErr = c.netConn.Close()
	})
	return c.closeErr
}

func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// serveConn runs the read/drain/write loop until the peer goes away, the idle
// timeout fires, framing breaks or a write fails.
func (s *Server) serveConn(ctx context.Context, c *Conn) {
	ctx = logger.WithConnID(logger.WithLogger(ctx, s.logger), c.id)
	log := logger.L(ctx).With("remote_addr", c.RemoteAddr().String())

	defer func() {
		_ = c.Close()
		s.clients.Delete(c.id)
		s.metrics.ClientDisconnected()
		log.Debug("connection closed")
	}()

	log.Debug("connection accepted")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.setState(StateReading)
		_ = c.netConn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		n, err := c.netConn.Read(c.scratch)
		if n > 0 {
			c.buf = append(c.buf, c.scratch[:n]...)
			s.metrics.AddNetIO(n, 0)
		}
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			case errors.As(err, &netErr) && netErr.Timeout():
				log.Debug("idle timeout")
			default:
				log.Debug("read failed", "error", err)
			}
			return
		}

		if len(c.buf) < c.need {
			continue
		}

		// Replies to the frames before a corrupt one are still owed.
		keep := s.drain(c, log)

		if c.bw.Buffered() > 0 {
			c.setState(StateWriting)
			out := c.bw.Buffered()
			if err := c.bw.Flush(); err != nil {
				log.Debug("write failed", "error", err)
				return
			}
			s.metrics.AddNetIO(0, out)
		}

		if !keep || c.quit {
			return
		}
	}
}

// drain dispatches every complete frame in c.buf and buffers the replies.
// It returns false when the connection must be closed.
func (s *Server) drain(c *Conn, log *slog.Logger) bool {
	c.setState(StateDraining)
	// bw may flush on its own once a reply batch outgrows it.
	_ = c.netConn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))

	consumed := 0
	c.need = 0
	defer func() {
		// Keep the unframed tail at the front of the buffer.
		rest := copy(c.buf, c.buf[consumed:])
		c.buf = c.buf[:rest]
	}()

	for consumed < len(c.buf) && !c.quit {
		n, need, err := resp.FrameNeed(c.buf[consumed:])
		if errors.Is(err, resp.ErrNeedMore) {
			// need is relative to the tail, which moves to the front below.
			c.need = need
			return true
		}
		if err != nil {
			log.Warn("malformed frame, closing connection", "error", err)
			s.metrics.IncProtocolErrors()
			return false
		}

		req, err := resp.Decode(c.buf[consumed : consumed+n])
		consumed += n
		if err != nil {
			log.Warn("undecodable frame, closing connection", "error", err)
			s.metrics.IncProtocolErrors()
			return false
		}

		log.Debug("<=", "frame", frameValue(req))
		reply := s.handler.Dispatch(c, req)
		log.Debug("=>", "frame", frameValue(reply))

		if _, err := c.bw.Write(resp.Append(nil, reply)); err != nil {
			log.Debug("write failed", "error", err)
			return false
		}
	}
	return true
}

// frameValue renders a frame for debug logs with credentials masked. It is
// only formatted when the debug level is enabled.
type frameValue resp.Value

func (f frameValue) LogValue() slog.Value {
	v := resp.Value(f)
	if v.Kind() != resp.KindArray {
		return slog.StringValue(v.String())
	}
	args := make([]string, 0, v.Len())
	for _, e := range v.Values() {
		if e.Kind() != resp.KindBulk && e.Kind() != resp.KindSimpleString {
			return slog.StringValue(v.String())
		}
		args = append(args, e.Str())
	}
	return slog.StringValue(strings.Join(logger.RedactArgs(args), " "))
}
