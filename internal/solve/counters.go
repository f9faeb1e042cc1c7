package solve

import "sync/atomic"

// counterStore tracks, per unresolved state, how many of its successors are
// still unresolved. Every counter has a single writer (the worker owning the
// state's shard), but counters of adjacent shards can share a backing word
// in the packed layout, so that layout updates through CAS.
type counterStore interface {
	// limit is the largest out-degree the store can hold.
	limit() uint8
	set(id uint64, n uint8)
	// decrement lowers id's counter by one and returns the new value.
	decrement(id uint64) uint8
}

// flatCounters is one byte per raw id. Distinct ids never share a byte, so
// single-writer updates need no atomics.
type flatCounters []uint8

func (f flatCounters) limit() uint8 { return 255 }

func (f flatCounters) set(id uint64, n uint8) { f[id] = n }

func (f flatCounters) decrement(id uint64) uint8 {
	f[id]--
	return f[id]
}

// countersPerWord packs 21 three-bit counters per word; the top bit stays
// unused so no counter straddles a word boundary.
const countersPerWord = 21

// packedCounters stores three-bit counters densely over reachable ids,
// addressed by reachability rank.
type packedCounters struct {
	idx   *rankIndex
	words []uint64
}

func newPackedCounters(idx *rankIndex) *packedCounters {
	return &packedCounters{
		idx:   idx,
		words: make([]uint64, (idx.total+countersPerWord-1)/countersPerWord),
	}
}

func (p *packedCounters) limit() uint8 { return 7 }

func (p *packedCounters) slot(id uint64) (wi uint64, shift uint) {
	d, ok := p.idx.lookup(id)
	if !ok {
		panic("packed counter for unreachable id")
	}
	return d / countersPerWord, uint(d%countersPerWord) * 3
}

func (p *packedCounters) get(id uint64) uint8 {
	wi, shift := p.slot(id)
	return uint8(atomic.LoadUint64(&p.words[wi])>>shift) & 7
}

func (p *packedCounters) set(id uint64, n uint8) {
	wi, shift := p.slot(id)
	w := &p.words[wi]
	for {
		old := atomic.LoadUint64(w)
		next := old&^(uint64(7)<<shift) | uint64(n)<<shift
		if atomic.CompareAndSwapUint64(w, old, next) {
			return
		}
	}
}

func (p *packedCounters) decrement(id uint64) uint8 {
	wi, shift := p.slot(id)
	w := &p.words[wi]
	for {
		old := atomic.LoadUint64(w)
		n := uint8(old>>shift) & 7
		next := old&^(uint64(7)<<shift) | (uint64(n-1)&7)<<shift
		if atomic.CompareAndSwapUint64(w, old, next) {
			return n - 1
		}
	}
}
