package store

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"os"

	"github.com/pmerle/squadro/internal/board"
	"github.com/pmerle/squadro/internal/solve"
)

// Database file: the finished solve, queryable by raw id.
//
// Header (96 bytes):
//   - Magic (4): "SQDB"
//   - Version (2): 1
//   - CodecVersion (2)
//   - IndexSpace (8)
//   - ReachWords (8)
//   - Reachable (8): number of reachable states
//   - Wins0 (8), Wins1 (8), Draws (8), Terminals (8): outcome totals
//   - Checksum (4): CRC32 of the uncompressed body
//   - Reserved (28)
//
// Body (zstd): reachability bitmap words, then two-bit outcomes for the
// reachable states only, in increasing id order. Draws are stored
// explicitly, so every entry is win, loss, or draw; unreachable ids have no
// entry at all. An id's entry position is its rank in the bitmap.

const (
	dbMagic      = "SQDB"
	dbVersion    = 1
	dbHeaderSize = 96
	dbCRCOffset  = 64
)

// rankBlock is the bitmap-word stride between precomputed rank samples.
const rankBlock = 8

// Stats are the outcome totals of a finished solve.
type Stats struct {
	Reachable uint64
	Wins      [2]uint64
	Draws     uint64
	Terminals uint64
}

type dbHeader struct {
	codecVersion uint16
	indexSpace   uint64
	reachWords   uint64
	stats        Stats
	checksum     uint32
}

func encodeDBHeader(h *dbHeader) []byte {
	buf := make([]byte, dbHeaderSize)
	copy(buf[0:4], dbMagic)
	binary.LittleEndian.PutUint16(buf[4:6], dbVersion)
	binary.LittleEndian.PutUint16(buf[6:8], h.codecVersion)
	binary.LittleEndian.PutUint64(buf[8:16], h.indexSpace)
	binary.LittleEndian.PutUint64(buf[16:24], h.reachWords)
	binary.LittleEndian.PutUint64(buf[24:32], h.stats.Reachable)
	binary.LittleEndian.PutUint64(buf[32:40], h.stats.Wins[0])
	binary.LittleEndian.PutUint64(buf[40:48], h.stats.Wins[1])
	binary.LittleEndian.PutUint64(buf[48:56], h.stats.Draws)
	binary.LittleEndian.PutUint64(buf[56:64], h.stats.Terminals)
	binary.LittleEndian.PutUint32(buf[64:68], h.checksum)
	return buf
}

func decodeDBHeader(buf []byte) (*dbHeader, error) {
	if len(buf) < dbHeaderSize {
		return nil, fmt.Errorf("%w: header too short", ErrBadMagic)
	}
	if string(buf[0:4]) != dbMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, buf[0:4])
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != dbVersion {
		return nil, fmt.Errorf("%w: database version %d", ErrBadVersion, v)
	}
	h := &dbHeader{
		codecVersion: binary.LittleEndian.Uint16(buf[6:8]),
		indexSpace:   binary.LittleEndian.Uint64(buf[8:16]),
		reachWords:   binary.LittleEndian.Uint64(buf[16:24]),
		checksum:     binary.LittleEndian.Uint32(buf[64:68]),
	}
	h.stats.Reachable = binary.LittleEndian.Uint64(buf[24:32])
	h.stats.Wins[0] = binary.LittleEndian.Uint64(buf[32:40])
	h.stats.Wins[1] = binary.LittleEndian.Uint64(buf[40:48])
	h.stats.Draws = binary.LittleEndian.Uint64(buf[48:56])
	h.stats.Terminals = binary.LittleEndian.Uint64(buf[56:64])
	if h.codecVersion != board.CodecVersion {
		return nil, fmt.Errorf("%w: codec %d, want %d", ErrBadCodec, h.codecVersion, board.CodecVersion)
	}
	return h, nil
}

func entryWordCount(reachable uint64) uint64 {
	return (2*reachable + 63) / 64
}

// WriteDatabase persists a completed solve as the final outcome database.
func WriteDatabase(path string, res *solve.Result) error {
	h := dbHeader{
		codecVersion: board.CodecVersion,
		indexSpace:   res.Reach.Size(),
		reachWords:   uint64(len(res.Reach.Words())),
		stats: Stats{
			Reachable: res.Stats.Reachable,
			Wins:      res.Stats.Wins,
			Draws:     res.Stats.Draws,
			Terminals: res.Stats.Terminals,
		},
	}
	return writeFile(path, encodeDBHeader(&h), dbCRCOffset, func(bw *bodyWriter) error {
		if err := bw.writeWords(res.Reach.Words()); err != nil {
			return err
		}

		// Pack outcomes for reachable ids in id order, flushing in chunks
		// so the full entry array is never resident.
		packWords := make([]uint64, wordChunk)
		packed := 0
		var written uint64
		for wi, word := range res.Reach.Words() {
			for word != 0 {
				bit := uint64(bits.TrailingZeros64(word))
				word &= word - 1
				out := res.Outcome(uint64(wi)*64 + bit)
				packWords[packed>>5] |= uint64(out) << ((packed & 31) * 2)
				packed++
				if packed == wordChunk*32 {
					if err := bw.writeWords(packWords); err != nil {
						return err
					}
					written += wordChunk
					for i := range packWords {
						packWords[i] = 0
					}
					packed = 0
				}
			}
		}
		if packed > 0 {
			if err := bw.writeWords(packWords[:(packed+31)/32]); err != nil {
				return err
			}
			written += uint64((packed + 31) / 32)
		}
		if want := entryWordCount(res.Stats.Reachable); written != want {
			return fmt.Errorf("packed %d entry words, want %d", written, want)
		}
		return nil
	})
}

// DB is an opened outcome database, fully resident. Safe for concurrent
// reads.
type DB struct {
	space   uint64
	stats   Stats
	reach   []uint64
	rank    []uint64 // cumulative popcount before every rankBlock-th word
	entries []uint64
}

// OpenDatabase loads an outcome database into memory and verifies its
// checksum.
func OpenDatabase(path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	headerBuf := make([]byte, dbHeaderSize)
	if _, err := f.ReadAt(headerBuf, 0); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h, err := decodeDBHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(dbHeaderSize, 0); err != nil {
		return nil, err
	}
	br, err := newBodyReader(f)
	if err != nil {
		return nil, err
	}
	reach := make([]uint64, h.reachWords)
	entries := make([]uint64, entryWordCount(h.stats.Reachable))
	if err := br.readWords(reach); err != nil {
		return nil, fmt.Errorf("read bitmap: %w", err)
	}
	if err := br.readWords(entries); err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	if err := br.close(h.checksum); err != nil {
		return nil, err
	}

	db := &DB{
		space:   h.indexSpace,
		stats:   h.stats,
		reach:   reach,
		entries: entries,
		rank:    make([]uint64, (len(reach)+rankBlock-1)/rankBlock+1),
	}
	var running uint64
	for wi, word := range reach {
		if wi%rankBlock == 0 {
			db.rank[wi/rankBlock] = running
		}
		running += uint64(bits.OnesCount64(word))
	}
	if running != h.stats.Reachable {
		return nil, fmt.Errorf("bitmap has %d states, header says %d", running, h.stats.Reachable)
	}
	return db, nil
}

// IndexSpace returns the id space the database covers.
func (db *DB) IndexSpace() uint64 {
	return db.space
}

// Stats returns the stored outcome totals.
func (db *DB) Stats() Stats {
	return db.stats
}

// Contains reports whether id is a reachable state of the solved game.
func (db *DB) Contains(id uint64) bool {
	if id >= db.space {
		return false
	}
	return db.reach[id>>6]&(1<<(id&63)) != 0
}

// Outcome returns the stored classification of id, or Unresolved when id is
// out of range or unreachable.
func (db *DB) Outcome(id uint64) solve.Outcome {
	if !db.Contains(id) {
		return solve.Unresolved
	}
	wi := int(id >> 6)
	r := db.rank[wi/rankBlock]
	for i := wi - wi%rankBlock; i < wi; i++ {
		r += uint64(bits.OnesCount64(db.reach[i]))
	}
	r += uint64(bits.OnesCount64(db.reach[wi] & (1<<(id&63) - 1)))
	return solve.Outcome(db.entries[r>>5] >> ((r & 31) * 2) & 3)
}
