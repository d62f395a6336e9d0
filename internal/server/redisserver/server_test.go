package redisserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/core/service"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/resp"
)

// pipeServer serves one side of a net.Pipe and returns the client side.
func pipeServer(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })

	c := newConn(server, srv.cfg.ReadBufferSize)
	srv.clients.Set(c.id, c)
	go srv.serveConn(context.Background(), c)
	return client
}

// readReply reads exactly one framed reply.
func readReply(t *testing.T, r *bufio.Reader, nc net.Conn) string {
	t.Helper()
	_ = nc.SetReadDeadline(time.Now().Add(2 * time.Second))

	var buf []byte
	for {
		if len(buf) > 0 {
			n, err := resp.FrameLen(buf)
			if err == nil {
				if n != len(buf) {
					t.Fatalf("read past one reply: %q", buf)
				}
				return string(buf)
			}
			if !errors.Is(err, resp.ErrNeedMore) {
				t.Fatalf("malformed reply %q: %v", buf, err)
			}
		}
		line, err := r.ReadBytes('\n')
		buf = append(buf, line...)
		if err != nil {
			t.Fatalf("read reply: %v (have %q)", err, buf)
		}
	}
}

func newTestServer(cfg *Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Address = "127.0.0.1:0"
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Second
	}
	return New(cfg, service.NewInstance(), nil, opts...)
}

// ============================================================
// Config and lifecycle
// ============================================================

func TestServer_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Address != "127.0.0.1:6379" {
		t.Errorf("Address = %q, want 127.0.0.1:6379", cfg.Address)
	}
	if cfg.IdleTimeout != time.Hour {
		t.Errorf("IdleTimeout = %v, want 1h", cfg.IdleTimeout)
	}
	if cfg.ReadBufferSize != 1024 {
		t.Errorf("ReadBufferSize = %d, want 1024", cfg.ReadBufferSize)
	}
	if cfg.NilReply != NilReplyArray || cfg.DelReply != DelReplyOK {
		t.Errorf("compat defaults = %q/%q", cfg.NilReply, cfg.DelReply)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := (&Config{Address: "0.0.0.0:7000", RateLimit: 5}).withDefaults()

	if cfg.Address != "0.0.0.0:7000" || cfg.RateLimit != 5 {
		t.Errorf("explicit values lost: %+v", cfg)
	}
	if cfg.IdleTimeout != time.Hour || cfg.WriteTimeout != 30*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestConnState(t *testing.T) {
	tests := []struct {
		state ConnState
		want  string
	}{
		{StateReading, "reading"},
		{StateDraining, "draining"},
		{StateWriting, "writing"},
		{StateClosed, "closed"},
		{ConnState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("ConnState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestConn_NewAndClose(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := newConn(server, 16)
	if len(c.ID()) != len(ConnIDPrefix)+26 {
		t.Errorf("ID() = %q, want prefix plus 26-char ULID", c.ID())
	}
	if c.State() != StateReading {
		t.Errorf("initial state = %v", c.State())
	}
	if len(c.scratch) != 16 {
		t.Errorf("read slab = %d, want 16", len(c.scratch))
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if c.State() != StateClosed {
		t.Errorf("state after Close = %v", c.State())
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	m := metric.NewRegistry()
	srv := newTestServer(nil, WithMetrics(m))
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	nc, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer nc.Close()

	r := bufio.NewReader(nc)
	_, _ = nc.Write(resp.Append(nil, resp.Command("PING")))
	if got := readReply(t, r, nc); got != "$4\r\nPONG\r\n" {
		t.Errorf("PING = %q", got)
	}
	if srv.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", srv.ClientCount())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	_ = nc.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := r.ReadByte(); err == nil {
		t.Error("client connection still open after Shutdown")
	}
	if srv.ClientCount() != 0 {
		t.Errorf("ClientCount() after Shutdown = %d", srv.ClientCount())
	}
}

func TestServer_ListenBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srv := New(&Config{Address: ln.Addr().String()}, nil, nil)
	if err := srv.Listen(); err == nil {
		t.Error("Listen() on a bound port succeeded")
	}
}

// ============================================================
// Wire scenarios
// ============================================================

func TestServer_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		in    []string
		wants [][]string // acceptable replies per request
	}{
		{
			name:  "ping",
			in:    []string{"*1\r\n$4\r\nPING\r\n"},
			wants: [][]string{{"$4\r\nPONG\r\n"}},
		},
		{
			name:  "ping echo",
			in:    []string{"*2\r\n$4\r\nPING\r\n$5\r\nhello\r\n"},
			wants: [][]string{{"$5\r\nhello\r\n"}},
		},
		{
			name:  "set then incr",
			in:    []string{"*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\n1\r\n", "*2\r\n$4\r\nINCR\r\n$1\r\nk\r\n"},
			wants: [][]string{{"+OK\r\n"}, {":2\r\n"}},
		},
		{
			name:  "setex then ttl",
			in:    []string{"*4\r\n$5\r\nSETEX\r\n$1\r\nk\r\n$2\r\n60\r\n$1\r\nv\r\n", "*2\r\n$3\r\nTTL\r\n$1\r\nk\r\n"},
			wants: [][]string{{"+OK\r\n"}, {":60\r\n", ":59\r\n"}},
		},
		{
			name: "select isolates",
			in: []string{
				"*2\r\n$6\r\nSELECT\r\n$1\r\n1\r\n",
				"*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n",
				"*2\r\n$6\r\nSELECT\r\n$1\r\n0\r\n",
				"*2\r\n$3\r\nGET\r\n$1\r\nk\r\n",
			},
			wants: [][]string{{"+OK\r\n"}, {"+OK\r\n"}, {"+OK\r\n"}, {"*-1\r\n"}},
		},
		{
			name:  "config get",
			in:    []string{"*3\r\n$6\r\nCONFIG\r\n$3\r\nGET\r\n$10\r\nappendonly\r\n"},
			wants: [][]string{{"*2\r\n$10\r\nappendonly\r\n$2\r\nno\r\n"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := pipeServer(t, newTestServer(nil))
			r := bufio.NewReader(client)

			for i, in := range tt.in {
				if _, err := client.Write([]byte(in)); err != nil {
					t.Fatalf("Write error: %v", err)
				}
				got := readReply(t, r, client)
				ok := false
				for _, want := range tt.wants[i] {
					ok = ok || got == want
				}
				if !ok {
					t.Errorf("request %d reply = %q, want one of %q", i, got, tt.wants[i])
				}
			}
		})
	}
}

func TestServer_Pipelining(t *testing.T) {
	client := pipeServer(t, newTestServer(nil))
	r := bufio.NewReader(client)

	var batch []byte
	for i := 0; i < 50; i++ {
		batch = resp.Append(batch, resp.Command("INCR", "n"))
	}
	batch = resp.Append(batch, resp.Command("GET", "n"))

	go func() { _, _ = client.Write(batch) }()

	for i := 1; i <= 50; i++ {
		want := ":" + strconv.Itoa(i) + "\r\n"
		if got := readReply(t, r, client); got != want {
			t.Fatalf("reply %d = %q, want %q", i, got, want)
		}
	}
	if got := readReply(t, r, client); got != ":50\r\n" {
		t.Errorf("GET = %q, want :50", got)
	}
}

func TestServer_SplitFrames(t *testing.T) {
	client := pipeServer(t, newTestServer(&Config{ReadBufferSize: 3}))
	r := bufio.NewReader(client)

	frame := "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n"
	for i := 0; i < len(frame); i += 2 {
		end := min(i+2, len(frame))
		if _, err := client.Write([]byte(frame[i:end])); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if got := readReply(t, r, client); got != "+OK\r\n" {
		t.Errorf("SET = %q", got)
	}
}

func TestServer_LargeBulkSmallReads(t *testing.T) {
	client := pipeServer(t, newTestServer(&Config{ReadBufferSize: 16}))
	r := bufio.NewReader(client)

	value := strings.Repeat("v", 64*1024)
	batch := resp.Append(nil, resp.Command("SET", "big", value))
	batch = resp.Append(batch, resp.Command("STRLEN", "big"))
	go func() { _, _ = client.Write(batch) }()

	if got := readReply(t, r, client); got != "+OK\r\n" {
		t.Errorf("SET = %q", got)
	}
	if got := readReply(t, r, client); got != ":65536\r\n" {
		t.Errorf("STRLEN = %q, want :65536", got)
	}
}

func TestServer_InlinePing(t *testing.T) {
	client := pipeServer(t, newTestServer(nil))
	r := bufio.NewReader(client)

	_, _ = client.Write([]byte("+ping\r\n"))
	if got := readReply(t, r, client); got != "$4\r\nPONG\r\n" {
		t.Errorf("inline ping = %q", got)
	}
}

func TestServer_ProtocolErrorCloses(t *testing.T) {
	m := metric.NewRegistry()
	client := pipeServer(t, newTestServer(nil, WithMetrics(m)))

	_, _ = client.Write([]byte("*1\r\n$x\r\n"))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := client.Read(buf)
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("Read() = %d, %v; want connection closed without reply", n, err)
	}
}

func TestServer_ProtocolErrorAfterValidFrames(t *testing.T) {
	srv := newTestServer(nil)
	client := pipeServer(t, srv)
	r := bufio.NewReader(client)

	batch := resp.Append(nil, resp.Command("SET", "k", "v"))
	batch = resp.Append(batch, resp.Command("INCR", "n"))
	batch = append(batch, "*1\r\n$x\r\n"...)
	go func() { _, _ = client.Write(batch) }()

	if got := readReply(t, r, client); got != "+OK\r\n" {
		t.Errorf("SET = %q, want +OK", got)
	}
	if got := readReply(t, r, client); got != ":1\r\n" {
		t.Errorf("INCR = %q, want :1", got)
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		t.Errorf("after corrupt frame Read error = %v, want EOF", err)
	}
	if v, ok := srv.inst.DB(0).Get(resp.BulkString("k")); !ok || v.Str() != "v" {
		t.Errorf("stored k = %v, %v", v, ok)
	}
}

func TestServer_ErrorThenContinue(t *testing.T) {
	client := pipeServer(t, newTestServer(nil))
	r := bufio.NewReader(client)

	_, _ = client.Write(resp.Append(nil, resp.Command("NOPE")))
	if got := readReply(t, r, client); got != "-ERR command 'NOPE' is not yet implemented\r\n" {
		t.Errorf("unknown command = %q", got)
	}
	_, _ = client.Write(resp.Append(nil, resp.Command("PING")))
	if got := readReply(t, r, client); got != "$4\r\nPONG\r\n" {
		t.Errorf("PING after error = %q", got)
	}
}

func TestServer_Quit(t *testing.T) {
	client := pipeServer(t, newTestServer(nil))
	r := bufio.NewReader(client)

	_, _ = client.Write(resp.Append(nil, resp.Command("QUIT")))
	if got := readReply(t, r, client); got != "+OK\r\n" {
		t.Errorf("QUIT = %q", got)
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		t.Errorf("after QUIT Read error = %v, want EOF", err)
	}
}

func TestServer_IdleTimeout(t *testing.T) {
	client := pipeServer(t, newTestServer(&Config{IdleTimeout: 50 * time.Millisecond}))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := client.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Errorf("Read error = %v, want EOF after idle timeout", err)
	}
}

// ============================================================
// Concurrency
// ============================================================

func TestServer_ConcurrentIncr(t *testing.T) {
	const (
		clients = 100
		perConn = 1000
	)

	srv := newTestServer(nil)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	addr := srv.Addr().String()

	incr := resp.Append(nil, resp.Command("INCR", "k"))

	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			nc, err := net.Dial("tcp", addr)
			if err != nil {
				errs <- err
				return
			}
			defer nc.Close()

			r := bufio.NewReader(nc)
			for j := 0; j < perConn; j++ {
				if _, err := nc.Write(incr); err != nil {
					errs <- err
					return
				}
				line, err := r.ReadString('\n')
				if err != nil {
					errs <- err
					return
				}
				if line[0] != ':' {
					errs <- errors.New("unexpected reply " + line)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("client error: %v", err)
	}

	v, ok := srv.inst.DB(0).Get(resp.BulkString("k"))
	if !ok || v.Int() != clients*perConn {
		t.Errorf("k = %s, want %d", v, clients*perConn)
	}
}

// ============================================================================
// Frame logging
// ============================================================================

func TestFrameValue(t *testing.T) {
	bulk := func(ss ...string) resp.Value {
		vs := make([]resp.Value, len(ss))
		for i, s := range ss {
			vs[i] = resp.BulkString(s)
		}
		return resp.ArrayOf(vs...)
	}

	tests := []struct {
		name string
		in   resp.Value
		want string
	}{
		{"command", bulk("SET", "k", "v"), "SET k v"},
		{"credential masked", bulk("CONFIG", "SET", "requirepass", "hunter2"), "CONFIG SET requirepass ***REDACTED***"},
		{"integer reply", resp.Integer(7), ":7"},
		{"mixed array", resp.ArrayOf(resp.Integer(1), resp.BulkString("x")), `[:1 "x"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := frameValue(tt.in).LogValue().String(); got != tt.want {
				t.Errorf("LogValue() = %q, want %q", got, tt.want)
			}
		})
	}
}
