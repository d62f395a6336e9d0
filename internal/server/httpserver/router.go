package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/storage/memory"
)

// KeyspaceSource lists the current databases ordered by id.
type KeyspaceSource interface {
	Snapshot() []*memory.DB
}

// RouterConfig holds the dependencies of the HTTP routes.
type RouterConfig struct {
	// Metrics serves /metrics. A nil handler disables the route.
	Metrics http.Handler

	// Keyspace backs /keyspace. A nil source disables the route.
	Keyspace KeyspaceSource

	// Ready reports whether the RESP listener is accepting. Nil means always
	// ready.
	Ready func() bool

	Logger *slog.Logger
}

type keyspaceEntry struct {
	DB      uint64 `json:"db"`
	Keys    int    `json:"keys"`
	Expires int    `json:"expires"`
	Expired uint64 `json:"expired"`
	Digest  string `json:"digest"`
}

// NewRouter builds the observability mux.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	started := time.Now()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "ok",
			"version":        buildinfo.Get().Version,
			"uptime_seconds": int64(time.Since(started).Seconds()),
		})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil && !cfg.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	if cfg.Keyspace != nil {
		mux.HandleFunc("GET /keyspace", func(w http.ResponseWriter, r *http.Request) {
			dbs := cfg.Keyspace.Snapshot()
			out := make([]keyspaceEntry, 0, len(dbs))
			for _, db := range dbs {
				st := db.Stats()
				out = append(out, keyspaceEntry{
					DB:      st.ID,
					Keys:    st.Keys,
					Expires: st.Expires,
					Expired: st.Expired,
					Digest:  fmt.Sprintf("%016x", db.Digest()),
				})
			}
			writeJSON(w, http.StatusOK, out)
		})
	}

	return Chain(mux, RequestID(logger), AccessLog(), Recover())
}
