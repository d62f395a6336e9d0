package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/pkg/resp"
)

func memoryKey(s string) resp.Value { return resp.BulkString(s) }

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.CommandsTotal == nil || r.CommandDuration == nil {
		t.Error("command metrics are nil")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler(t *testing.T) {
	body := scrape(t, Handler())

	// Go runtime and process collectors
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestCommandMetrics(t *testing.T) {
	r := NewRegistry()

	r.ObserveCommand("get", time.Microsecond, false)
	r.ObserveCommand("get", time.Microsecond, false)
	r.ObserveCommand("incr", time.Microsecond, true)

	body := scrape(t, r.Handler())

	if !strings.Contains(body, `respkv_commands_total{command="get"} 2`) {
		t.Error(`expected respkv_commands_total{command="get"} 2`)
	}
	if !strings.Contains(body, `respkv_command_errors_total{command="incr"} 1`) {
		t.Error(`expected respkv_command_errors_total{command="incr"} 1`)
	}
	if !strings.Contains(body, "respkv_command_duration_seconds_bucket") {
		t.Error("expected respkv_command_duration_seconds_bucket")
	}
}

func TestConnectionMetrics(t *testing.T) {
	r := NewRegistry()

	r.ClientConnected()
	r.ClientConnected()
	r.ClientDisconnected()
	r.IncProtocolErrors()
	r.IncRateLimited()
	r.AddExpiredKeys(3, 4)
	r.AddNetIO(100, 20)

	body := scrape(t, r.Handler())

	for _, want := range []string{
		"respkv_connected_clients 1",
		"respkv_connections_received_total 2",
		"respkv_protocol_errors_total 1",
		"respkv_rate_limited_total 1",
		`respkv_expired_keys_total{db="3"} 4`,
		"respkv_net_input_bytes_total 100",
		"respkv_net_output_bytes_total 20",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s", want)
		}
	}
}

func TestNilRegistry(t *testing.T) {
	var r *Registry

	// Should not panic
	r.ObserveCommand("get", time.Millisecond, false)
	r.ClientConnected()
	r.ClientDisconnected()
	r.IncProtocolErrors()
	r.IncRateLimited()
	r.AddExpiredKeys(0, 1)
	r.AddNetIO(1, 1)
}

func TestKeyspaceCollector(t *testing.T) {
	reg := memory.NewRegistry()
	db := reg.Get(2)
	db.Set(memoryKey("a"), memoryKey("1"))
	db.Set(memoryKey("b"), memoryKey("2"))
	db.SetExpiry(memoryKey("b"), db.Now()+60_000)

	r := NewRegistry()
	if err := r.Register(NewKeyspaceCollector(reg)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `respkv_db_keys{db="2"} 2`) {
		t.Error(`expected respkv_db_keys{db="2"} 2`)
	}
	if !strings.Contains(body, `respkv_db_expiring_keys{db="2"} 1`) {
		t.Error(`expected respkv_db_expiring_keys{db="2"} 1`)
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.ClientConnected()
				r.ObserveCommand("set", time.Microsecond, false)
				r.AddExpiredKeys(0, 1)
				r.ClientDisconnected()
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `respkv_commands_total{command="set"} 1000`) {
		t.Error(`expected respkv_commands_total{command="set"} 1000`)
	}
}
