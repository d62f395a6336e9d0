package memory

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/respkv/pkg/resp"
)

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Millis returns the clock reading as unix milliseconds, floored at zero.
func (c Clock) Millis() uint64 {
	ms := c().UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

// ExpireHook is called with the number of keys a DB expired, after its
// mutex has been released.
type ExpireHook func(db uint64, n int)

// Option configures a DB.
type Option func(*DB)

// WithClock sets the time source used for expiration.
func WithClock(c Clock) Option {
	return func(db *DB) {
		if c != nil {
			db.clock = c
		}
	}
}

// WithExpireHook registers a callback for expired keys.
func WithExpireHook(h ExpireHook) Option {
	return func(db *DB) {
		db.onExpire = h
	}
}

type slot struct {
	key resp.Value
	val resp.Value
}

// DB is one numbered keyspace.
type DB struct {
	id uint64

	mu     sync.Mutex
	kv     map[string]slot
	expiry map[string]uint64

	clock    Clock
	onExpire ExpireHook

	expired atomic.Uint64
}

// New creates an empty DB.
func New(id uint64, opts ...Option) *DB {
	db := &DB{
		id:     id,
		kv:     make(map[string]slot),
		expiry: make(map[string]uint64),
		clock:  time.Now,
	}

	for _, opt := range opts {
		opt(db)
	}

	return db
}

// ID returns the database number.
func (db *DB) ID() uint64 {
	return db.id
}

// Now returns the DB clock in unix milliseconds.
func (db *DB) Now() uint64 {
	return db.clock.Millis()
}

// Update runs fn with exclusive access to the DB. The Txn is only valid
// inside fn. fn must not block.
func (db *DB) Update(fn func(tx *Txn) error) error {
	tx := &Txn{db: db, now: db.clock.Millis()}

	db.mu.Lock()
	err := fn(tx)
	db.mu.Unlock()

	db.reportExpired(tx.expired)
	return err
}

func (db *DB) reportExpired(n int) {
	if n == 0 {
		return
	}
	db.expired.Add(uint64(n))
	if db.onExpire != nil {
		db.onExpire(db.id, n)
	}
}

// Set stores v under k and returns the previous value, if any. The expiry
// of k is left unchanged.
func (db *DB) Set(k, v resp.Value) (old resp.Value, ok bool) {
	_ = db.Update(func(tx *Txn) error {
		old, ok = tx.Set(k, v)
		return nil
	})
	return old, ok
}

// Get returns the value stored under k.
func (db *DB) Get(k resp.Value) (v resp.Value, ok bool) {
	_ = db.Update(func(tx *Txn) error {
		v, ok = tx.Get(k)
		return nil
	})
	return v, ok
}

// Delete removes k and its expiry. It reports whether k held a value.
func (db *DB) Delete(k resp.Value) (ok bool) {
	_ = db.Update(func(tx *Txn) error {
		ok = tx.Delete(k)
		return nil
	})
	return ok
}

// Contains reports whether k holds a live value.
func (db *DB) Contains(k resp.Value) (ok bool) {
	_ = db.Update(func(tx *Txn) error {
		ok = tx.Contains(k)
		return nil
	})
	return ok
}

// Entry runs fn on the slot for k inside one critical section.
func (db *DB) Entry(k resp.Value, fn func(e *Entry) error) error {
	return db.Update(func(tx *Txn) error {
		return fn(tx.Entry(k))
	})
}

// SetExpiry sets the absolute deadline of k in unix milliseconds.
// It is a no-op when k holds no value.
func (db *DB) SetExpiry(k resp.Value, whenMs uint64) (ok bool) {
	_ = db.Update(func(tx *Txn) error {
		ok = tx.SetExpiry(k, whenMs)
		return nil
	})
	return ok
}

// GetExpiry returns the deadline of k.
func (db *DB) GetExpiry(k resp.Value) (when uint64, ok bool) {
	_ = db.Update(func(tx *Txn) error {
		when, ok = tx.GetExpiry(k)
		return nil
	})
	return when, ok
}

// RemoveExpiry clears the deadline of k and reports whether one was set.
func (db *DB) RemoveExpiry(k resp.Value) (ok bool) {
	_ = db.Update(func(tx *Txn) error {
		ok = tx.RemoveExpiry(k)
		return nil
	})
	return ok
}

// ContainsExpiry reports whether k has a deadline. It does not expire k.
func (db *DB) ContainsExpiry(k resp.Value) (ok bool) {
	_ = db.Update(func(tx *Txn) error {
		ok = tx.ContainsExpiry(k)
		return nil
	})
	return ok
}

// Clear removes every key.
func (db *DB) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()

	clear(db.kv)
	clear(db.expiry)
}

// Len returns the number of live keys.
func (db *DB) Len() (n int) {
	_ = db.Update(func(tx *Txn) error {
		n = tx.Len()
		return nil
	})
	return n
}

// Keys returns the live keys whose byte form matches a glob pattern.
func (db *DB) Keys(pattern string) (keys []resp.Value) {
	_ = db.Update(func(tx *Txn) error {
		keys = tx.Keys(pattern)
		return nil
	})
	return keys
}

// ExpireSweep deletes up to limit keys whose deadline has passed and
// returns how many it removed. limit <= 0 means no limit.
func (db *DB) ExpireSweep(limit int) (n int) {
	_ = db.Update(func(tx *Txn) error {
		for k, when := range db.expiry {
			if limit > 0 && n >= limit {
				break
			}
			if tx.now >= when {
				delete(db.kv, k)
				delete(db.expiry, k)
				n++
			}
		}
		tx.expired += n
		return nil
	})
	return n
}

// Digest returns an order-independent hash of the live key/value pairs.
// DBs holding equal pairs have equal digests; an empty DB digests to 0.
// Deadlines do not contribute. Nothing is expired.
func (db *DB) Digest() uint64 {
	now := db.clock.Millis()

	db.mu.Lock()
	defer db.mu.Unlock()

	var sum uint64
	for k, s := range db.kv {
		if when, ok := db.expiry[k]; ok && now >= when {
			continue
		}
		sum += resp.ArrayOf(s.key, s.val).Hash()
	}
	return sum
}

// Stats is a point-in-time view of one DB.
type Stats struct {
	ID      uint64
	Keys    int
	Expires int
	Expired uint64
}

// Stats returns key counts without expiring anything.
func (db *DB) Stats() Stats {
	db.mu.Lock()
	keys, expires := len(db.kv), len(db.expiry)
	db.mu.Unlock()

	return Stats{
		ID:      db.id,
		Keys:    keys,
		Expires: expires,
		Expired: db.expired.Load(),
	}
}
