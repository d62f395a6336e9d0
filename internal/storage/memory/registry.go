package memory

import (
	"slices"
	"sync"
)

// Registry maps database numbers to DBs, creating them on first use.
type Registry struct {
	mu   sync.Mutex
	dbs  map[uint64]*DB
	opts []Option
}

// NewRegistry creates an empty registry. opts are applied to every DB it
// creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		dbs:  make(map[uint64]*DB),
		opts: opts,
	}
}

// Get returns the DB numbered id, creating it if needed. Concurrent callers
// for the same id receive the same DB.
func (r *Registry) Get(id uint64) *DB {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, ok := r.dbs[id]
	if !ok {
		db = New(id, r.opts...)
		r.dbs[id] = db
	}
	return db
}

// Snapshot returns the current DBs ordered by id. The registry mutex is
// released before the slice is returned.
func (r *Registry) Snapshot() []*DB {
	r.mu.Lock()
	dbs := make([]*DB, 0, len(r.dbs))
	for _, db := range r.dbs {
		dbs = append(dbs, db)
	}
	r.mu.Unlock()

	slices.SortFunc(dbs, func(a, b *DB) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	return dbs
}

// FlushAll clears every DB, locking one at a time.
func (r *Registry) FlushAll() {
	for _, db := range r.Snapshot() {
		db.Clear()
	}
}

// Stats returns per-DB counts ordered by id.
func (r *Registry) Stats() []Stats {
	dbs := r.Snapshot()
	stats := make([]Stats, 0, len(dbs))
	for _, db := range dbs {
		stats = append(stats, db.Stats())
	}
	return stats
}

// Sweep runs ExpireSweep on every DB and returns the total removed.
func (r *Registry) Sweep(limit int) int {
	n := 0
	for _, db := range r.Snapshot() {
		n += db.ExpireSweep(limit)
	}
	return n
}
