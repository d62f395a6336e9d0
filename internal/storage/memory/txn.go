package memory

import (
	"github.com/yndnr/respkv/pkg/resp"
)

// Txn is exclusive access to a DB for the duration of an Update call.
// All reads observe the same clock reading.
type Txn struct {
	db      *DB
	now     uint64
	expired int
}

// Now returns the clock reading the transaction started with, in unix ms.
func (tx *Txn) Now() uint64 {
	return tx.now
}

// expire removes k if its deadline has passed and reports whether it did.
func (tx *Txn) expire(k string) bool {
	when, ok := tx.db.expiry[k]
	if !ok || tx.now < when {
		return false
	}
	delete(tx.db.kv, k)
	delete(tx.db.expiry, k)
	tx.expired++
	return true
}

// Set stores v under k and returns the previous value.
func (tx *Txn) Set(k, v resp.Value) (resp.Value, bool) {
	key := k.Key()
	tx.expire(key)

	old, ok := tx.db.kv[key]
	tx.db.kv[key] = slot{key: k, val: v}
	return old.val, ok
}

// Get returns the live value under k.
func (tx *Txn) Get(k resp.Value) (resp.Value, bool) {
	key := k.Key()
	if tx.expire(key) {
		return resp.Value{}, false
	}
	s, ok := tx.db.kv[key]
	return s.val, ok
}

// Delete removes k and its deadline.
func (tx *Txn) Delete(k resp.Value) bool {
	key := k.Key()
	if tx.expire(key) {
		return false
	}
	_, ok := tx.db.kv[key]
	delete(tx.db.kv, key)
	delete(tx.db.expiry, key)
	return ok
}

// Contains reports whether k holds a live value.
func (tx *Txn) Contains(k resp.Value) bool {
	key := k.Key()
	if tx.expire(key) {
		return false
	}
	_, ok := tx.db.kv[key]
	return ok
}

// SetExpiry sets the deadline of k. Keys without a value get no deadline.
func (tx *Txn) SetExpiry(k resp.Value, whenMs uint64) bool {
	key := k.Key()
	if _, ok := tx.db.kv[key]; !ok {
		return false
	}
	tx.db.expiry[key] = whenMs
	return true
}

// GetExpiry returns the deadline of k.
func (tx *Txn) GetExpiry(k resp.Value) (uint64, bool) {
	when, ok := tx.db.expiry[k.Key()]
	return when, ok
}

// RemoveExpiry clears the deadline of k.
func (tx *Txn) RemoveExpiry(k resp.Value) bool {
	key := k.Key()
	_, ok := tx.db.expiry[key]
	delete(tx.db.expiry, key)
	return ok
}

// ContainsExpiry reports whether k has a deadline, without expiring it.
func (tx *Txn) ContainsExpiry(k resp.Value) bool {
	_, ok := tx.db.expiry[k.Key()]
	return ok
}

// Len expires stale keys and returns the number left.
func (tx *Txn) Len() int {
	for key := range tx.db.expiry {
		tx.expire(key)
	}
	return len(tx.db.kv)
}

// Keys returns the live keys matching pattern.
func (tx *Txn) Keys(pattern string) []resp.Value {
	keys := make([]resp.Value, 0)
	for key, s := range tx.db.kv {
		if tx.expire(key) {
			continue
		}
		if MatchGlob(pattern, s.key.Bytes()) {
			keys = append(keys, s.key)
		}
	}
	return keys
}

// Entry returns a handle to the slot for k, expiring it first.
func (tx *Txn) Entry(k resp.Value) *Entry {
	key := k.Key()
	tx.expire(key)

	s, ok := tx.db.kv[key]
	return &Entry{tx: tx, key: key, k: k, val: s.val, exists: ok}
}

// Entry is a read-then-write handle to one key inside a Txn.
type Entry struct {
	tx     *Txn
	key    string
	k      resp.Value
	val    resp.Value
	exists bool
}

// Exists reports whether the key held a value when the entry was taken
// or has been set since.
func (e *Entry) Exists() bool {
	return e.exists
}

// Value returns the current value of the entry.
func (e *Entry) Value() resp.Value {
	return e.val
}

// OrInsert stores v if the entry is vacant and returns the resulting value.
func (e *Entry) OrInsert(v resp.Value) resp.Value {
	if !e.exists {
		e.Set(v)
	}
	return e.val
}

// Set replaces the value of the entry. The deadline is left unchanged.
func (e *Entry) Set(v resp.Value) {
	e.tx.db.kv[e.key] = slot{key: e.k, val: v}
	e.val = v
	e.exists = true
}
