package toast

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock records scheduled removals so tests can fire them by hand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) fire(i int) {
	c.mu.Lock()
	t := c.timers[i]
	c.mu.Unlock()
	if !t.stopped {
		t.f()
	}
}

func newFakeNotifier() (*Notifier, *fakeClock) {
	clock := &fakeClock{}
	n := NewNotifier(0)
	n.afterFunc = clock.AfterFunc
	return n, clock
}

func TestNotifier_AddAssignsIncreasingIDs(t *testing.T) {
	n, _ := newFakeNotifier()
	a := n.Add("first", Success)
	b := n.Add("second", "")
	if b.ID <= a.ID {
		t.Errorf("ids not increasing: %d then %d", a.ID, b.ID)
	}
	if b.Kind != Info {
		t.Errorf("default kind = %q, want info", b.Kind)
	}
}

func TestNotifier_IDsUniqueAcrossNotifiers(t *testing.T) {
	n1, _ := newFakeNotifier()
	n2, _ := newFakeNotifier()
	a := n1.Info("a")
	b := n2.Info("b")
	if a.ID == b.ID {
		t.Errorf("two notifiers produced id %d", a.ID)
	}
}

func TestNotifier_ListKeepsInsertionOrderAndDuplicates(t *testing.T) {
	n, _ := newFakeNotifier()
	n.Error("same")
	n.Error("same")
	n.Success("other")

	got := n.List()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []string{"same", "same", "other"}
	for i, w := range want {
		if got[i].Message != w {
			t.Errorf("List()[%d] = %q, want %q", i, got[i].Message, w)
		}
	}
	if got[0].ID >= got[1].ID || got[1].ID >= got[2].ID {
		t.Error("list not in id order")
	}
}

func TestNotifier_ScheduledRemoval(t *testing.T) {
	n, clock := newFakeNotifier()
	n.Info("a")
	b := n.Info("b")

	if d := clock.timers[0].d; d != DefaultTTL {
		t.Errorf("scheduled after %v, want %v", d, DefaultTTL)
	}
	clock.fire(0)
	got := n.List()
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("after expiry list = %+v, want only b", got)
	}
}

func TestNotifier_RemoveCancelsTimer(t *testing.T) {
	n, clock := newFakeNotifier()
	a := n.Info("a")
	n.Remove(a.ID)
	if n.Len() != 0 {
		t.Fatal("toast not removed")
	}
	if !clock.timers[0].stopped {
		t.Error("timer not stopped on manual removal")
	}
	// expiry of an already-removed toast is a no-op
	n.expire(a.ID)
	n.Remove(a.ID)
	n.Remove(9999)
	if n.Len() != 0 {
		t.Error("unexpected toasts")
	}
}

func TestNotifier_ExpiryAfterRemoveLeavesOthers(t *testing.T) {
	n, _ := newFakeNotifier()
	a := n.Info("a")
	b := n.Info("b")
	n.Remove(a.ID)
	n.expire(a.ID)
	got := n.List()
	if len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("list = %+v, want only b", got)
	}
}

func TestNotifier_RealTimerExpires(t *testing.T) {
	n := NewNotifier(20 * time.Millisecond)
	n.Info("short-lived")
	deadline := time.Now().Add(2 * time.Second)
	for n.Len() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("toast never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub(t *testing.T) {
	var mu sync.Mutex
	counts := map[Kind]int{}
	h := NewHub(time.Minute, func(k Kind) {
		mu.Lock()
		counts[k]++
		mu.Unlock()
	})
	a := h.For("c1")
	if h.For("c1") != a {
		t.Fatal("For returned a different notifier for the same client")
	}
	if h.For("c2") == a {
		t.Fatal("clients share a notifier")
	}
	a.Error("boom")
	if counts[Error] != 1 {
		t.Errorf("observed errors = %d, want 1", counts[Error])
	}
	h.nowF = func() time.Time { return time.Now().Add(time.Hour) }
	if n := h.Sweep(time.Minute); n != 1 {
		t.Errorf("Sweep dropped %d, want 1 (the empty c2)", n)
	}
}

func TestHub_SweepKeepsRecentlyUsedNotifier(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	h := NewHub(time.Minute, nil)
	h.nowF = func() time.Time { return now }

	// A request picks up the notifier, the sweep runs, then the request adds its toast.
	n := h.For("client")
	if dropped := h.Sweep(30 * time.Minute); dropped != 0 {
		t.Fatalf("Sweep dropped %d, want 0", dropped)
	}
	n.Success("Work order created!")

	if got := h.For("client").List(); len(got) != 1 || got[0].Message != "Work order created!" {
		t.Errorf("next request sees %+v, want the toast added after the sweep", got)
	}

	testCases := []struct {
		name    string
		elapsed time.Duration
		toasts  bool
		want    int
	}{
		{"recent and empty", 10 * time.Minute, false, 0},
		{"idle with toasts", time.Hour, true, 0},
		{"idle and empty", time.Hour, false, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHub(time.Hour, nil)
			start := now
			h.nowF = func() time.Time { return start }
			n := h.For("c")
			if tc.toasts {
				n.Info("still here")
			}
			start = start.Add(tc.elapsed)
			if got := h.Sweep(30 * time.Minute); got != tc.want {
				t.Errorf("Sweep = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	n := NewNotifier(time.Minute)
	if FromContext(WithNotifier(context.Background(), n)) != n {
		t.Error("FromContext did not return attached notifier")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext must never return nil")
	}
}
