package realtime

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegistry_FirstAndLastSignals(t *testing.T) {
	r := NewConnectionRegistry()

	if first := r.Register("alice", "w1", "conn-1"); !first {
		t.Error("expected first connection to signal first=true")
	}
	if first := r.Register("alice", "w1", "conn-2"); first {
		t.Error("expected second connection to signal first=false")
	}

	if !r.IsOnline("alice") {
		t.Error("expected alice to be online")
	}

	if last := r.Unregister("alice", "conn-1"); last {
		t.Error("expected last=false while a connection remains")
	}
	if last := r.Unregister("alice", "conn-2"); !last {
		t.Error("expected last=true when the final connection drops")
	}

	if r.IsOnline("alice") {
		t.Error("expected alice to be offline")
	}
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewConnectionRegistry()

	r.Register("alice", "w1", "conn-1")
	r.Register("alice", "w1", "conn-1")

	if got := r.ConnectionCount("alice"); got != 1 {
		t.Errorf("expected 1 connection after duplicate register, got %d", got)
	}
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	r := NewConnectionRegistry()

	if last := r.Unregister("ghost", "conn-1"); last {
		t.Error("unregistering an unknown user must not signal last=true")
	}

	r.Register("alice", "w1", "conn-1")
	if last := r.Unregister("alice", "conn-other"); last {
		t.Error("unregistering an unknown connection must not signal last=true")
	}
	if !r.IsOnline("alice") {
		t.Error("alice must stay online after a stale unregister")
	}
}

func TestRegistry_ConcurrentConnectDisconnect(t *testing.T) {
	for _, n := range []int{2, 10, 100} {
		t.Run(strconv.Itoa(n)+" connections", func(t *testing.T) {
			r := NewConnectionRegistry()

			var firsts, lasts atomic.Int64
			var wg sync.WaitGroup

			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if r.Register("bob", "w1", "conn-"+strconv.Itoa(i)) {
						firsts.Add(1)
					}
				}(i)
			}
			wg.Wait()

			if firsts.Load() != 1 {
				t.Errorf("expected exactly one first signal, got %d", firsts.Load())
			}
			if got := r.ConnectionCount("bob"); got != n {
				t.Errorf("expected %d connections, got %d", n, got)
			}

			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if r.Unregister("bob", "conn-"+strconv.Itoa(i)) {
						lasts.Add(1)
					}
				}(i)
			}
			wg.Wait()

			if lasts.Load() != 1 {
				t.Errorf("expected exactly one last signal, got %d", lasts.Load())
			}
			if r.IsOnline("bob") {
				t.Error("expected bob to be offline after all disconnects")
			}
		})
	}
}

func TestRegistry_IndependentUsers(t *testing.T) {
	r := NewConnectionRegistry()

	r.Register("alice", "w1", "conn-a")
	r.Register("bob", "w2", "conn-b")

	if last := r.Unregister("alice", "conn-a"); !last {
		t.Error("expected alice's last signal")
	}
	if !r.IsOnline("bob") {
		t.Error("bob must be unaffected by alice's disconnect")
	}
}
