package solve

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestTableFirstWriteWins(t *testing.T) {
	tbl := NewTable(100)
	if got := tbl.Get(42); got != Unresolved {
		t.Fatalf("fresh table returned %v", got)
	}
	if !tbl.TryClassify(42, Win) {
		t.Fatal("first classification should win")
	}
	if tbl.TryClassify(42, Loss) {
		t.Fatal("second classification should lose")
	}
	if got := tbl.Get(42); got != Win {
		t.Fatalf("index 42 = %v, want Win", got)
	}
	// Neighbors inside the same word are untouched.
	for i := uint64(32); i < 64; i++ {
		if i == 42 {
			continue
		}
		if got := tbl.Get(i); got != Unresolved {
			t.Fatalf("index %d = %v, want Unresolved", i, got)
		}
	}
}

func TestTableConcurrentClassify(t *testing.T) {
	tbl := NewTable(64)
	var wins int64
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		out := Win
		if g%2 == 1 {
			out = Loss
		}
		wg.Add(1)
		go func(out Outcome) {
			defer wg.Done()
			for i := uint64(0); i < 64; i++ {
				if tbl.TryClassify(i, out) {
					atomic.AddInt64(&wins, 1)
				}
			}
		}(out)
	}
	wg.Wait()
	if wins != 64 {
		t.Fatalf("%d successful classifications, want exactly 64", wins)
	}
	for i := uint64(0); i < 64; i++ {
		if got := tbl.Get(i); got != Win && got != Loss {
			t.Fatalf("index %d = %v after racing writers", i, got)
		}
	}
}

func TestTableFromWords(t *testing.T) {
	tbl := NewTable(65)
	tbl.TryClassify(64, Draw)
	rebuilt, err := TableFromWords(65, tbl.Words())
	if err != nil {
		t.Fatalf("TableFromWords: %v", err)
	}
	if got := rebuilt.Get(64); got != Draw {
		t.Fatalf("rebuilt index 64 = %v, want Draw", got)
	}
	if _, err := TableFromWords(64, tbl.Words()); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestDenseTable(t *testing.T) {
	bm := NewBitmap(500)
	for _, id := range []uint64{3, 64, 65, 130, 499} {
		bm.Set(id)
	}
	tbl := newDenseTable(500, newRankIndex(bm))
	if !tbl.Dense() {
		t.Fatal("expected the dense layout")
	}
	if !tbl.TryClassify(65, Win) {
		t.Fatal("first classification should win")
	}
	if tbl.TryClassify(65, Loss) {
		t.Fatal("second classification should lose")
	}
	if got := tbl.Get(65); got != Win {
		t.Fatalf("id 65 = %v, want Win", got)
	}
	if got := tbl.Get(64); got != Unresolved {
		t.Fatalf("rank neighbor 64 = %v, want Unresolved", got)
	}
	// Unreachable ids read Unresolved and never take a classification.
	if tbl.TryClassify(4, Win) {
		t.Fatal("classified an unreachable id")
	}
	if got := tbl.Get(4); got != Unresolved {
		t.Fatalf("unreachable id = %v", got)
	}

	rebuilt, err := DenseTableFromWords(500, bm, tbl.Words())
	if err != nil {
		t.Fatalf("DenseTableFromWords: %v", err)
	}
	if !rebuilt.Dense() || rebuilt.Get(65) != Win || rebuilt.Get(130) != Unresolved {
		t.Fatal("rebuilt dense table changed entries")
	}
	if _, err := DenseTableFromWords(500, bm, nil); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestBitmap(t *testing.T) {
	bm := NewBitmap(200)
	if !bm.Set(63) {
		t.Fatal("first set should report newly set")
	}
	if bm.Set(63) {
		t.Fatal("second set should report already set")
	}
	bm.Set(0)
	bm.Set(199)
	if bm.Get(64) {
		t.Fatal("bit 64 should be clear")
	}
	if !bm.Get(199) {
		t.Fatal("bit 199 should be set")
	}
	if got := bm.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}
	rebuilt, err := BitmapFromWords(200, bm.Words())
	if err != nil {
		t.Fatalf("BitmapFromWords: %v", err)
	}
	if rebuilt.Count() != 3 {
		t.Fatal("rebuilt bitmap lost bits")
	}
	if _, err := BitmapFromWords(300, bm.Words()); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
