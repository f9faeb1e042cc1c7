package solve

import (
	"sync"
	"testing"
)

func TestPackedCounters(t *testing.T) {
	// Reachable ids scattered over many bitmap words.
	bm := NewBitmap(10000)
	var ids []uint64
	for id := uint64(3); id < 10000; id += 137 {
		bm.Set(id)
		ids = append(ids, id)
	}
	pc := newPackedCounters(newRankIndex(bm))
	if pc.limit() != 7 {
		t.Fatalf("limit() = %d, want 7", pc.limit())
	}

	for i, id := range ids {
		pc.set(id, uint8(i%8))
	}
	for i, id := range ids {
		if got := pc.get(id); got != uint8(i%8) {
			t.Fatalf("id %d = %d, want %d", id, got, i%8)
		}
	}

	// Decrementing one counter leaves its word neighbors alone.
	id := ids[5]
	for want := 4; want >= 0; want-- {
		if got := pc.decrement(id); got != uint8(want) {
			t.Fatalf("decrement -> %d, want %d", got, want)
		}
	}
	for i, other := range ids {
		if other == id {
			continue
		}
		if got := pc.get(other); got != uint8(i%8) {
			t.Fatalf("id %d changed to %d after decrementing %d", other, got, id)
		}
	}
}

func TestPackedCountersConcurrent(t *testing.T) {
	// 21 counters share one backing word; racing decrements on different
	// ids must not clobber each other.
	bm := NewBitmap(64)
	for id := uint64(0); id < countersPerWord; id++ {
		bm.Set(id)
	}
	pc := newPackedCounters(newRankIndex(bm))
	for id := uint64(0); id < countersPerWord; id++ {
		pc.set(id, 5)
	}

	var wg sync.WaitGroup
	for id := uint64(0); id < countersPerWord; id++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for k := 0; k < 5; k++ {
				pc.decrement(id)
			}
		}(id)
	}
	wg.Wait()

	for id := uint64(0); id < countersPerWord; id++ {
		if got := pc.get(id); got != 0 {
			t.Fatalf("id %d = %d after its decrements", id, got)
		}
	}
}

func TestRankIndex(t *testing.T) {
	bm := NewBitmap(2000)
	ids := []uint64{0, 5, 63, 64, 512, 513, 1999}
	for _, id := range ids {
		bm.Set(id)
	}
	idx := newRankIndex(bm)
	if idx.total != uint64(len(ids)) {
		t.Fatalf("total = %d, want %d", idx.total, len(ids))
	}
	for want, id := range ids {
		r, ok := idx.lookup(id)
		if !ok || r != uint64(want) {
			t.Fatalf("lookup(%d) = %d,%v, want %d", id, r, ok, want)
		}
	}
	if _, ok := idx.lookup(1); ok {
		t.Fatal("lookup of an unset bit reported reachable")
	}
}
