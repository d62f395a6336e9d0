package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/yndnr/respkv/pkg/resp"
)

// DefaultTimeout bounds dialing and each command round trip.
const DefaultTimeout = 5 * time.Second

const readChunk = 4096

// ErrClosed is returned by Do after Close or after the server hung up.
var ErrClosed = errors.New("connection closed")

// Client is a connection to a respkv server. It is not safe for concurrent
// use.
type Client struct {
	addr    string
	timeout time.Duration
	conn    net.Conn
	buf     []byte
}

// Dial connects to addr.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return &Client{addr: addr, timeout: timeout, conn: conn}, nil
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Do sends args as one command and returns the reply. Error replies are
// returned as values, not errors; the error result is for transport and
// framing failures only.
func (c *Client) Do(ctx context.Context, args ...string) (resp.Value, error) {
	if c.conn == nil {
		return resp.Value{}, ErrClosed
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return resp.Value{}, err
	}

	if err := resp.Encode(c.conn, resp.Command(args...)); err != nil {
		return resp.Value{}, c.fail(err)
	}
	return c.readReply()
}

func (c *Client) readReply() (resp.Value, error) {
	chunk := make([]byte, readChunk)
	for {
		// Inline frames are a request form; a server never replies with one.
		if len(c.buf) > 0 && !isReplyType(c.buf[0]) {
			return resp.Value{}, c.fail(fmt.Errorf("%w: unexpected reply type %q", resp.ErrMalformed, c.buf[0]))
		}
		n, err := resp.FrameLen(c.buf)
		switch {
		case err == nil:
			v, derr := resp.Decode(c.buf[:n])
			c.buf = append(c.buf[:0], c.buf[n:]...)
			if derr != nil {
				return resp.Value{}, c.fail(derr)
			}
			return v, nil
		case !errors.Is(err, resp.ErrNeedMore):
			return resp.Value{}, c.fail(fmt.Errorf("bad reply from server: %w", err))
		}

		m, rerr := c.conn.Read(chunk)
		c.buf = append(c.buf, chunk[:m]...)
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return resp.Value{}, c.fail(ErrClosed)
			}
			return resp.Value{}, c.fail(rerr)
		}
	}
}

func isReplyType(b byte) bool {
	switch b {
	case '+', '-', ':', '$', '*':
		return true
	}
	return false
}

// fail closes the connection; a half-read reply leaves the stream unusable.
func (c *Client) fail(err error) error {
	_ = c.Close()
	return err
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.buf = nil
	return err
}
