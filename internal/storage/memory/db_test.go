package memory

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/respkv/pkg/resp"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func key(s string) resp.Value { return resp.BulkString(s) }

// ============================================================
// Basic operations
// ============================================================

func TestDB_SetGetDelete(t *testing.T) {
	db := New(0)

	if _, ok := db.Set(key("k"), key("v1")); ok {
		t.Error("first Set reported a previous value")
	}
	old, ok := db.Set(key("k"), key("v2"))
	if !ok || old.Str() != "v1" {
		t.Errorf("Set() old = %s, %v; want v1, true", old, ok)
	}

	got, ok := db.Get(key("k"))
	if !ok || got.Str() != "v2" {
		t.Errorf("Get() = %s, %v; want v2, true", got, ok)
	}

	if !db.Delete(key("k")) {
		t.Error("Delete() = false, want true")
	}
	if db.Delete(key("k")) {
		t.Error("second Delete() = true, want false")
	}
	if db.Contains(key("k")) {
		t.Error("Contains() after Delete = true")
	}
}

func TestDB_KeysAreStructural(t *testing.T) {
	db := New(0)
	db.Set(resp.BulkString("k"), resp.Integer(1))
	db.Set(resp.SimpleString("k"), resp.Integer(2))

	if db.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", db.Len())
	}
	v, _ := db.Get(resp.BulkString("k"))
	if v.Int() != 1 {
		t.Errorf("bulk key = %s, want 1", v)
	}
}

func TestDB_SetKeepsExpiry(t *testing.T) {
	clock := newFakeClock()
	db := New(0, WithClock(clock.Now))

	db.Set(key("k"), key("v"))
	db.SetExpiry(key("k"), db.Now()+5000)
	db.Set(key("k"), key("v2"))

	if !db.ContainsExpiry(key("k")) {
		t.Error("Set cleared the expiry")
	}
}

func TestDB_SetExpiryRequiresValue(t *testing.T) {
	db := New(0)
	if db.SetExpiry(key("missing"), 1) {
		t.Error("SetExpiry on absent key = true")
	}
	if st := db.Stats(); st.Expires != 0 {
		t.Errorf("Stats().Expires = %d, want 0", st.Expires)
	}
}

func TestDB_DeleteRemovesExpiry(t *testing.T) {
	db := New(0)
	db.Set(key("k"), key("v"))
	db.SetExpiry(key("k"), db.Now()+60_000)

	db.Delete(key("k"))
	if db.ContainsExpiry(key("k")) {
		t.Error("Delete left an expiry behind")
	}
}

// ============================================================
// Lazy expiration
// ============================================================

func TestDB_LazyExpiration(t *testing.T) {
	clock := newFakeClock()
	var hooked int
	db := New(3, WithClock(clock.Now), WithExpireHook(func(id uint64, n int) {
		if id != 3 {
			t.Errorf("hook db = %d, want 3", id)
		}
		hooked += n
	}))

	db.Set(key("k"), key("v"))
	db.SetExpiry(key("k"), db.Now()+1000)

	clock.Advance(999 * time.Millisecond)
	if !db.Contains(key("k")) {
		t.Fatal("key expired early")
	}

	// Deadline reached: now >= expiry.
	clock.Advance(time.Millisecond)
	if !db.ContainsExpiry(key("k")) {
		t.Error("ContainsExpiry must not expire")
	}
	if _, ok := db.Get(key("k")); ok {
		t.Error("Get() returned an expired key")
	}
	if db.ContainsExpiry(key("k")) {
		t.Error("expired key kept its expiry")
	}
	if hooked != 1 {
		t.Errorf("expire hook count = %d, want 1", hooked)
	}
	if got := db.Stats().Expired; got != 1 {
		t.Errorf("Stats().Expired = %d, want 1", got)
	}
}

func TestDB_ExpireZeroIsImmediate(t *testing.T) {
	clock := newFakeClock()
	db := New(0, WithClock(clock.Now))

	db.Set(key("k"), key("v"))
	db.SetExpiry(key("k"), db.Now())

	if _, ok := db.Get(key("k")); ok {
		t.Error("key with deadline == now is still visible")
	}
}

func TestDB_LenAndKeysExpire(t *testing.T) {
	clock := newFakeClock()
	db := New(0, WithClock(clock.Now))

	db.Set(key("a"), key("1"))
	db.Set(key("b"), key("2"))
	db.SetExpiry(key("b"), db.Now()+10)
	clock.Advance(time.Second)

	if n := db.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
	keys := db.Keys("*")
	if len(keys) != 1 || keys[0].Str() != "a" {
		t.Errorf("Keys(*) = %v", keys)
	}
}

func TestDB_Keys(t *testing.T) {
	db := New(0)
	for _, k := range []string{"user:1", "user:2", "session:1"} {
		db.Set(key(k), key("x"))
	}

	if got := db.Keys("user:*"); len(got) != 2 {
		t.Errorf("Keys(user:*) = %d keys, want 2", len(got))
	}
	if got := db.Keys("nomatch"); got == nil || len(got) != 0 {
		t.Errorf("Keys(nomatch) = %v, want empty slice", got)
	}
}

func TestDB_ExpireSweep(t *testing.T) {
	clock := newFakeClock()
	db := New(0, WithClock(clock.Now))

	for _, k := range []string{"a", "b", "c"} {
		db.Set(key(k), key("v"))
		db.SetExpiry(key(k), db.Now()+100)
	}
	db.Set(key("keep"), key("v"))
	clock.Advance(time.Second)

	if n := db.ExpireSweep(2); n != 2 {
		t.Errorf("ExpireSweep(2) = %d, want 2", n)
	}
	if n := db.ExpireSweep(0); n != 1 {
		t.Errorf("ExpireSweep(0) = %d, want 1", n)
	}
	if st := db.Stats(); st.Keys != 1 || st.Expires != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestDB_Digest(t *testing.T) {
	clock := newFakeClock()
	a := New(0, WithClock(clock.Now))
	b := New(1, WithClock(clock.Now))

	if a.Digest() != 0 {
		t.Errorf("empty Digest() = %x, want 0", a.Digest())
	}

	a.Set(key("x"), key("1"))
	a.Set(key("y"), resp.Integer(2))
	b.Set(key("y"), resp.Integer(2))
	b.Set(key("x"), key("1"))
	if a.Digest() != b.Digest() {
		t.Errorf("insertion order changed digest: %x != %x", a.Digest(), b.Digest())
	}

	b.Set(key("x"), key("2"))
	if a.Digest() == b.Digest() {
		t.Error("different values share a digest")
	}
	b.Set(key("x"), key("1"))

	// An expired pair no longer contributes, and is not removed.
	a.Set(key("gone"), key("v"))
	a.SetExpiry(key("gone"), a.Now()+10)
	clock.Advance(time.Second)
	if a.Digest() != b.Digest() {
		t.Error("expired pair still counted")
	}
	if st := a.Stats(); st.Keys != 3 {
		t.Errorf("Digest expired keys: Stats().Keys = %d, want 3", st.Keys)
	}
}

// ============================================================
// Entry and Update
// ============================================================

func TestDB_Entry(t *testing.T) {
	db := New(0)

	err := db.Entry(key("n"), func(e *Entry) error {
		if e.Exists() {
			t.Error("vacant entry reports Exists")
		}
		v := e.OrInsert(resp.Integer(0))
		e.Set(resp.Integer(v.Int() + 1))
		return nil
	})
	if err != nil {
		t.Fatalf("Entry() error = %v", err)
	}

	v, _ := db.Get(key("n"))
	if v.Int() != 1 {
		t.Errorf("after Entry, n = %s, want 1", v)
	}

	sentinel := errors.New("stop")
	if err := db.Entry(key("n"), func(*Entry) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("Entry() error = %v, want sentinel", err)
	}
}

func TestDB_UpdateIsAtomic(t *testing.T) {
	db := New(0)
	const workers, iters = 50, 200

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				_ = db.Entry(key("n"), func(e *Entry) error {
					v := e.OrInsert(resp.Integer(0))
					e.Set(resp.Integer(v.Int() + 1))
					return nil
				})
			}
		}()
	}
	wg.Wait()

	v, _ := db.Get(key("n"))
	if v.Int() != workers*iters {
		t.Errorf("n = %d, want %d", v.Int(), workers*iters)
	}
}

func TestDB_Clear(t *testing.T) {
	db := New(0)
	db.Set(key("a"), key("1"))
	db.SetExpiry(key("a"), db.Now()+1000)

	db.Clear()

	if st := db.Stats(); st.Keys != 0 || st.Expires != 0 {
		t.Errorf("after Clear: Stats = %+v", st)
	}
}
