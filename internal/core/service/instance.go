package service

import (
	"sync"
	"time"

	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/pkg/resp"
)

// DefaultConfig is the configuration map an Instance starts with.
var DefaultConfig = map[string]string{
	"save":       "900 1 300 10 60 10000",
	"appendonly": "no",
}

// Instance is the shared server state.
type Instance struct {
	cfgMu  sync.Mutex
	config map[string]resp.Value

	registry *memory.Registry
	clock    memory.Clock
	started  time.Time
}

// InstanceOption configures an Instance.
type InstanceOption func(*instanceOptions)

type instanceOptions struct {
	clock  memory.Clock
	dbOpts []memory.Option
}

// WithClock sets the time source for the instance and its databases.
func WithClock(c memory.Clock) InstanceOption {
	return func(o *instanceOptions) {
		o.clock = c
	}
}

// WithDBOptions passes options to every database the instance creates.
func WithDBOptions(opts ...memory.Option) InstanceOption {
	return func(o *instanceOptions) {
		o.dbOpts = append(o.dbOpts, opts...)
	}
}

// NewInstance creates an Instance seeded with DefaultConfig.
func NewInstance(opts ...InstanceOption) *Instance {
	o := &instanceOptions{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	dbOpts := append([]memory.Option{memory.WithClock(o.clock)}, o.dbOpts...)

	inst := &Instance{
		config:   make(map[string]resp.Value, len(DefaultConfig)),
		registry: memory.NewRegistry(dbOpts...),
		clock:    o.clock,
		started:  o.clock(),
	}
	for k, v := range DefaultConfig {
		inst.config[resp.BulkString(k).Key()] = resp.BulkString(v)
	}

	return inst
}

// DB returns database id, creating it on first use.
func (i *Instance) DB(id uint64) *memory.DB {
	return i.registry.Get(id)
}

// Registry returns the database registry.
func (i *Instance) Registry() *memory.Registry {
	return i.registry
}

// Now returns the instance clock in unix milliseconds.
func (i *Instance) Now() uint64 {
	return i.clock.Millis()
}

// Uptime returns how long the instance has existed.
func (i *Instance) Uptime() time.Duration {
	return i.clock().Sub(i.started)
}

// ConfigGet returns a flat array of key, value pairs for each requested key
// that is present. Missing keys are omitted.
func (i *Instance) ConfigGet(keys []resp.Value) resp.Value {
	i.cfgMu.Lock()
	defer i.cfgMu.Unlock()

	b := resp.NewArrayBuilder(2 * len(keys))
	for _, k := range keys {
		if v, ok := i.config[k.Key()]; ok {
			b.Push(k)
			b.Push(v)
		}
	}
	return b.Build()
}

// ConfigSet stores each key, value pair. A trailing unpaired key is ignored.
func (i *Instance) ConfigSet(pairs []resp.Value) {
	i.cfgMu.Lock()
	defer i.cfgMu.Unlock()

	for j := 0; j+1 < len(pairs); j += 2 {
		i.config[pairs[j].Key()] = pairs[j+1]
	}
}
