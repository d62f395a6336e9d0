package metric

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "respkv"

// Registry holds all application metrics. A nil *Registry is valid and
// records nothing.
type Registry struct {
	registry *prometheus.Registry

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandErrors   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Connection metrics
	ClientsConnected prometheus.Gauge
	ConnectionsTotal prometheus.Counter
	ProtocolErrors   prometheus.Counter
	RateLimitedTotal prometheus.Counter
	ExpiredKeysTotal *prometheus.CounterVec
	NetInputBytes    prometheus.Counter
	NetOutputBytes   prometheus.Counter
}

// NewRegistry creates a registry with the Go and process collectors
// plus all respkv metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands processed, by command name.",
		}, []string{"command"}),
		CommandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Commands that replied with an error, by command name.",
		}, []string{"command"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution time, by command name.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"command"}),
		ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Currently open client connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_received_total",
			Help:      "Client connections accepted.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Connections closed because of malformed framing.",
		}),
		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Commands rejected by the per-client rate limit.",
		}),
		ExpiredKeysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_keys_total",
			Help:      "Keys removed because their deadline passed, by database.",
		}, []string{"db"}),
		NetInputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "net_input_bytes_total",
			Help:      "Bytes read from clients.",
		}),
		NetOutputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "net_output_bytes_total",
			Help:      "Bytes written to clients.",
		}),
	}

	reg.MustRegister(
		r.CommandsTotal,
		r.CommandErrors,
		r.CommandDuration,
		r.ClientsConnected,
		r.ConnectionsTotal,
		r.ProtocolErrors,
		r.RateLimitedTotal,
		r.ExpiredKeysTotal,
		r.NetInputBytes,
		r.NetOutputBytes,
	)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns the /metrics handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Register adds an extra collector, such as a KeyspaceCollector.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// ObserveCommand records one executed command.
func (r *Registry) ObserveCommand(name string, d time.Duration, failed bool) {
	if r == nil {
		return
	}
	r.CommandsTotal.WithLabelValues(name).Inc()
	r.CommandDuration.WithLabelValues(name).Observe(d.Seconds())
	if failed {
		r.CommandErrors.WithLabelValues(name).Inc()
	}
}

// ClientConnected records an accepted connection.
func (r *Registry) ClientConnected() {
	if r == nil {
		return
	}
	r.ConnectionsTotal.Inc()
	r.ClientsConnected.Inc()
}

// ClientDisconnected records a closed connection.
func (r *Registry) ClientDisconnected() {
	if r == nil {
		return
	}
	r.ClientsConnected.Dec()
}

// IncProtocolErrors records a connection dropped for malformed input.
func (r *Registry) IncProtocolErrors() {
	if r == nil {
		return
	}
	r.ProtocolErrors.Inc()
}

// IncRateLimited records a rejected command.
func (r *Registry) IncRateLimited() {
	if r == nil {
		return
	}
	r.RateLimitedTotal.Inc()
}

// AddExpiredKeys records keys expired in database db. Its signature matches
// memory.ExpireHook.
func (r *Registry) AddExpiredKeys(db uint64, n int) {
	if r == nil {
		return
	}
	r.ExpiredKeysTotal.WithLabelValues(strconv.FormatUint(db, 10)).Add(float64(n))
}

// AddNetIO records bytes read from and written to clients.
func (r *Registry) AddNetIO(in, out int) {
	if r == nil {
		return
	}
	if in > 0 {
		r.NetInputBytes.Add(float64(in))
	}
	if out > 0 {
		r.NetOutputBytes.Add(float64(out))
	}
}
