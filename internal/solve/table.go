package solve

import (
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"
)

// Outcome classifies a state relative to its side to move.
type Outcome uint8

const (
	Unresolved Outcome = iota
	Win
	Loss
	Draw
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Loss:
		return "loss"
	case Draw:
		return "draw"
	default:
		return "unresolved"
	}
}

var (
	// ErrCounterOverflow marks a state whose out-degree does not fit the
	// per-state counter. The counter width is sized for the game's maximum
	// legal out-degree, so this is an integrity bug, never recoverable.
	ErrCounterOverflow = errors.New("successor counter overflow")
	// ErrNoMoves marks a non-terminal state with no forward moves. Games
	// with forced passes must surface the pass as a move, so this too is
	// an integrity bug in the move generator.
	ErrNoMoves = errors.New("non-terminal state has no moves")
)

// Table is the classification table: two bits per index, either flat over
// the full id space or packed densely by reachability rank. Writes are
// atomic and first-write-wins, so once an index is classified its value
// never changes; concurrent duplicate classification attempts are harmless.
type Table struct {
	words []uint64
	size  uint64
	idx   *rankIndex // non-nil when entries are stored densely by rank
}

// NewTable returns an all-Unresolved flat table covering indexes [0, size).
func NewTable(size uint64) *Table {
	return &Table{
		words: make([]uint64, (size+31)/32),
		size:  size,
	}
}

// newDenseTable returns an all-Unresolved table with one entry per reachable
// id, addressed through the rank index.
func newDenseTable(size uint64, idx *rankIndex) *Table {
	return &Table{
		words: make([]uint64, (idx.total+31)/32),
		size:  size,
		idx:   idx,
	}
}

// TableFromWords rebuilds a flat table from persisted backing words.
func TableFromWords(size uint64, words []uint64) (*Table, error) {
	if want := (size + 31) / 32; uint64(len(words)) != want {
		return nil, fmt.Errorf("table has %d words, want %d", len(words), want)
	}
	return &Table{words: words, size: size}, nil
}

// DenseTableFromWords rebuilds a dense table from persisted backing words
// and the reachability bitmap it was packed against.
func DenseTableFromWords(size uint64, reach *Bitmap, words []uint64) (*Table, error) {
	if reach.Size() != size {
		return nil, fmt.Errorf("bitmap covers %d ids, want %d", reach.Size(), size)
	}
	idx := newRankIndex(reach)
	if want := (idx.total + 31) / 32; uint64(len(words)) != want {
		return nil, fmt.Errorf("dense table has %d words, want %d", len(words), want)
	}
	return &Table{words: words, size: size, idx: idx}, nil
}

// Dense reports whether entries are stored densely by reachability rank
// rather than flat over the id space.
func (t *Table) Dense() bool {
	return t.idx != nil
}

// Size returns the index space the table covers.
func (t *Table) Size() uint64 {
	return t.size
}

// Get returns the current classification of index i. In the dense layout,
// unreachable ids read as Unresolved.
func (t *Table) Get(i uint64) Outcome {
	if t.idx != nil {
		d, ok := t.idx.lookup(i)
		if !ok {
			return Unresolved
		}
		i = d
	}
	w := atomic.LoadUint64(&t.words[i>>5])
	return Outcome((w >> ((i & 31) * 2)) & 3)
}

// TryClassify sets index i to o if it is still Unresolved. Reports whether
// this call performed the write; false means some earlier write won. In the
// dense layout, unreachable ids are never classified.
func (t *Table) TryClassify(i uint64, o Outcome) bool {
	if t.idx != nil {
		d, ok := t.idx.lookup(i)
		if !ok {
			return false
		}
		i = d
	}
	word := &t.words[i>>5]
	shift := (i & 31) * 2
	for {
		old := atomic.LoadUint64(word)
		if (old>>shift)&3 != uint64(Unresolved) {
			return false
		}
		if atomic.CompareAndSwapUint64(word, old, old|uint64(o)<<shift) {
			return true
		}
	}
}

// Words exposes the raw backing words for persistence. The slice must not
// be mutated while workers are running.
func (t *Table) Words() []uint64 {
	return t.words
}

// Bitmap is an atomic bit set over the id space, used for reachability.
type Bitmap struct {
	words []uint64
	size  uint64
}

// NewBitmap returns an empty bitmap covering indexes [0, size).
func NewBitmap(size uint64) *Bitmap {
	return &Bitmap{
		words: make([]uint64, (size+63)/64),
		size:  size,
	}
}

// BitmapFromWords rebuilds a bitmap from persisted backing words.
func BitmapFromWords(size uint64, words []uint64) (*Bitmap, error) {
	if want := (size + 63) / 64; uint64(len(words)) != want {
		return nil, fmt.Errorf("bitmap has %d words, want %d", len(words), want)
	}
	return &Bitmap{words: words, size: size}, nil
}

// Size returns the index space the bitmap covers.
func (b *Bitmap) Size() uint64 {
	return b.size
}

// Set marks index i and reports whether this call was the first to do so.
func (b *Bitmap) Set(i uint64) bool {
	mask := uint64(1) << (i & 63)
	word := &b.words[i>>6]
	for {
		old := atomic.LoadUint64(word)
		if atomic.CompareAndSwapUint64(word, old, old|mask) {
			return old&mask == 0
		}
	}
}

// Get reports whether index i is marked.
func (b *Bitmap) Get(i uint64) bool {
	return atomic.LoadUint64(&b.words[i>>6])&(1<<(i&63)) != 0
}

// Count returns the number of marked indexes.
func (b *Bitmap) Count() uint64 {
	var n uint64
	for i := range b.words {
		n += uint64(bits.OnesCount64(atomic.LoadUint64(&b.words[i])))
	}
	return n
}

// Words exposes the raw backing words for persistence. The slice must not
// be mutated while workers are running.
func (b *Bitmap) Words() []uint64 {
	return b.words
}
