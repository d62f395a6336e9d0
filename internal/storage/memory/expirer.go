package memory

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepLimit bounds how many keys one DB may expire per tick.
const DefaultSweepLimit = 200

// Expirer periodically removes expired keys that nobody has read.
type Expirer struct {
	registry *Registry
	interval time.Duration
	limit    int
	logger   *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewExpirer creates an Expirer over r. It does nothing until Start.
func NewExpirer(r *Registry, interval time.Duration, logger *slog.Logger) *Expirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expirer{
		registry: r,
		interval: interval,
		limit:    DefaultSweepLimit,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background loop. A non-positive interval disables it.
func (e *Expirer) Start() {
	if e.interval <= 0 {
		close(e.doneCh)
		return
	}
	go e.backgroundLoop()
}

// Stop ends the background loop and waits for it to exit.
// Start must have been called first.
func (e *Expirer) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
	<-e.doneCh
}

func (e *Expirer) backgroundLoop() {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := e.registry.Sweep(e.limit); n > 0 {
				e.logger.Debug("expired keys swept", "count", n)
			}
		case <-e.stopCh:
			return
		}
	}
}
