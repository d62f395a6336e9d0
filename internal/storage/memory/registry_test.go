package memory

import (
	"sync"
	"testing"
	"time"
)

func TestRegistry_GetCreatesOnce(t *testing.T) {
	r := NewRegistry()

	const n = 64
	got := make([]*DB, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.Get(7)
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if got[i] != got[0] {
			t.Fatal("concurrent Get returned different DBs for one id")
		}
	}
	if got[0].ID() != 7 {
		t.Errorf("ID() = %d, want 7", got[0].ID())
	}
}

func TestRegistry_SnapshotOrdered(t *testing.T) {
	r := NewRegistry()
	for _, id := range []uint64{5, 0, 3} {
		r.Get(id)
	}

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len(Snapshot()) = %d, want 3", len(snap))
	}
	for i, want := range []uint64{0, 3, 5} {
		if snap[i].ID() != want {
			t.Errorf("Snapshot()[%d].ID() = %d, want %d", i, snap[i].ID(), want)
		}
	}
}

func TestRegistry_FlushAll(t *testing.T) {
	r := NewRegistry()
	r.Get(0).Set(key("a"), key("1"))
	r.Get(1).Set(key("b"), key("2"))

	r.FlushAll()

	for _, st := range r.Stats() {
		if st.Keys != 0 {
			t.Errorf("db%d has %d keys after FlushAll", st.ID, st.Keys)
		}
	}
}

func TestRegistry_FlushAllConcurrentWithWrites(t *testing.T) {
	r := NewRegistry()
	done := make(chan struct{})

	var wg sync.WaitGroup
	for id := uint64(0); id < 4; id++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					r.Get(id).Set(key("k"), key("v"))
				}
			}
		}(id)
	}

	for i := 0; i < 100; i++ {
		r.FlushAll()
	}
	close(done)
	wg.Wait()
}

func TestRegistry_OptionsApplyToNewDBs(t *testing.T) {
	clock := newFakeClock()
	r := NewRegistry(WithClock(clock.Now))

	db := r.Get(2)
	db.Set(key("k"), key("v"))
	db.SetExpiry(key("k"), db.Now()+1000)
	clock.Advance(2 * time.Second)

	if n := r.Sweep(0); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
}

func TestExpirer(t *testing.T) {
	r := NewRegistry()
	db := r.Get(0)
	db.Set(key("k"), key("v"))
	db.SetExpiry(key("k"), db.Now())

	e := NewExpirer(r, 5*time.Millisecond, nil)
	e.Start()
	defer e.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if db.Stats().Keys == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("expirer did not remove the expired key")
}

func TestExpirer_Disabled(t *testing.T) {
	e := NewExpirer(NewRegistry(), 0, nil)
	e.Start()
	e.Stop()
}
