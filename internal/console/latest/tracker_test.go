package latest

import (
	"sync"
	"testing"
)

func TestTracker_NewerFetchSupersedes(t *testing.T) {
	var tr Tracker[int64]
	first := tr.Begin(1)
	second := tr.Begin(2)

	var units []string
	if first.Commit(func() { units = []string{"1A"} }) {
		t.Error("stale ticket for property 1 committed")
	}
	if !second.Commit(func() { units = []string{"2A", "2B"} }) {
		t.Error("current ticket did not commit")
	}
	if len(units) != 2 {
		t.Errorf("units = %v, want property 2 units", units)
	}
}

func TestTracker_SameKeyRefetch(t *testing.T) {
	var tr Tracker[string]
	a := tr.Begin("p")
	b := tr.Begin("p")
	if a.Current() {
		t.Error("earlier fetch for the same key should be superseded")
	}
	if !b.Current() {
		t.Error("latest fetch should be current")
	}
}

func TestTracker_OutOfOrderResponses(t *testing.T) {
	var tr Tracker[int]
	tickets := make([]Ticket[int], 10)
	for i := range tickets {
		tickets[i] = tr.Begin(i)
	}

	applied := -1
	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := len(tickets) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tickets[i].Commit(func() {
				mu.Lock()
				applied = i
				mu.Unlock()
			})
		}(i)
	}
	wg.Wait()
	if applied != 9 {
		t.Errorf("applied = %d, want only the last fetch (9)", applied)
	}
}
