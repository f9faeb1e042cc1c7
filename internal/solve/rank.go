package solve

import "math/bits"

// rankBlock is the bitmap-word stride between precomputed rank samples.
const rankBlock = 8

// rankIndex answers rank queries over a frozen reachability bitmap: how many
// reachable ids precede a given id. The bitmap must not change after the
// index is built.
type rankIndex struct {
	words []uint64
	rank  []uint64 // cumulative popcount before every rankBlock-th word
	total uint64
}

func newRankIndex(b *Bitmap) *rankIndex {
	words := b.Words()
	idx := &rankIndex{
		words: words,
		rank:  make([]uint64, (len(words)+rankBlock-1)/rankBlock+1),
	}
	var running uint64
	for wi, w := range words {
		if wi%rankBlock == 0 {
			idx.rank[wi/rankBlock] = running
		}
		running += uint64(bits.OnesCount64(w))
	}
	idx.total = running
	return idx
}

// lookup returns the dense rank of id; ok is false when id is unreachable.
func (idx *rankIndex) lookup(id uint64) (rank uint64, ok bool) {
	wi := int(id >> 6)
	mask := uint64(1) << (id & 63)
	if idx.words[wi]&mask == 0 {
		return 0, false
	}
	r := idx.rank[wi/rankBlock]
	for i := wi - wi%rankBlock; i < wi; i++ {
		r += uint64(bits.OnesCount64(idx.words[i]))
	}
	r += uint64(bits.OnesCount64(idx.words[wi] & (mask - 1)))
	return r, true
}
