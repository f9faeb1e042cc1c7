package store

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/pmerle/squadro/internal/board"
	"github.com/pmerle/squadro/internal/solve"
)

// Checkpoint file: a resumable mid-solve snapshot.
//
// Header (64 bytes):
//   - Magic (4): "SQCP"
//   - Version (2): 1
//   - CodecVersion (2): board id layout the snapshot was taken under
//   - IndexSpace (8)
//   - TableWords (8)
//   - ReachWords (8)
//   - Checksum (4): CRC32 of the uncompressed body
//   - Flags (1): bit 0 set when the table is packed densely by rank
//   - Reserved (27)
//
// Body (zstd): classification table words, then reachability bitmap words.

const (
	checkpointMagic      = "SQCP"
	checkpointVersion    = 1
	checkpointHeaderSize = 64
	checkpointCRCOffset  = 32
)

type checkpointHeader struct {
	codecVersion uint16
	indexSpace   uint64
	tableWords   uint64
	reachWords   uint64
	checksum     uint32
	dense        bool
}

func encodeCheckpointHeader(h *checkpointHeader) []byte {
	buf := make([]byte, checkpointHeaderSize)
	copy(buf[0:4], checkpointMagic)
	binary.LittleEndian.PutUint16(buf[4:6], checkpointVersion)
	binary.LittleEndian.PutUint16(buf[6:8], h.codecVersion)
	binary.LittleEndian.PutUint64(buf[8:16], h.indexSpace)
	binary.LittleEndian.PutUint64(buf[16:24], h.tableWords)
	binary.LittleEndian.PutUint64(buf[24:32], h.reachWords)
	binary.LittleEndian.PutUint32(buf[32:36], h.checksum)
	if h.dense {
		buf[36] = 1
	}
	return buf
}

func decodeCheckpointHeader(buf []byte) (*checkpointHeader, error) {
	if len(buf) < checkpointHeaderSize {
		return nil, fmt.Errorf("%w: header too short", ErrBadMagic)
	}
	if string(buf[0:4]) != checkpointMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, buf[0:4])
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != checkpointVersion {
		return nil, fmt.Errorf("%w: checkpoint version %d", ErrBadVersion, v)
	}
	h := &checkpointHeader{
		codecVersion: binary.LittleEndian.Uint16(buf[6:8]),
		indexSpace:   binary.LittleEndian.Uint64(buf[8:16]),
		tableWords:   binary.LittleEndian.Uint64(buf[16:24]),
		reachWords:   binary.LittleEndian.Uint64(buf[24:32]),
		checksum:     binary.LittleEndian.Uint32(buf[32:36]),
		dense:        buf[36]&1 != 0,
	}
	if h.codecVersion != board.CodecVersion {
		return nil, fmt.Errorf("%w: codec %d, want %d", ErrBadCodec, h.codecVersion, board.CodecVersion)
	}
	return h, nil
}

// WriteCheckpoint persists a solver snapshot, replacing any previous
// checkpoint at path atomically.
func WriteCheckpoint(path string, snap solve.Snapshot) error {
	h := checkpointHeader{
		codecVersion: board.CodecVersion,
		indexSpace:   snap.Table.Size(),
		tableWords:   uint64(len(snap.Table.Words())),
		reachWords:   uint64(len(snap.Reach.Words())),
		dense:        snap.Table.Dense(),
	}
	return writeFile(path, encodeCheckpointHeader(&h), checkpointCRCOffset, func(bw *bodyWriter) error {
		if err := bw.writeWords(snap.Table.Words()); err != nil {
			return err
		}
		return bw.writeWords(snap.Reach.Words())
	})
}

// ReadCheckpoint loads a snapshot for resuming. The snapshot must cover
// indexSpace ids and have been written under the current state codec.
func ReadCheckpoint(path string, indexSpace uint64) (solve.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return solve.Snapshot{}, err
	}
	defer f.Close()

	headerBuf := make([]byte, checkpointHeaderSize)
	if _, err := f.ReadAt(headerBuf, 0); err != nil {
		return solve.Snapshot{}, fmt.Errorf("read header: %w", err)
	}
	h, err := decodeCheckpointHeader(headerBuf)
	if err != nil {
		return solve.Snapshot{}, err
	}
	if h.indexSpace != indexSpace {
		return solve.Snapshot{}, fmt.Errorf("checkpoint covers %d ids, want %d", h.indexSpace, indexSpace)
	}

	if _, err := f.Seek(checkpointHeaderSize, 0); err != nil {
		return solve.Snapshot{}, err
	}
	br, err := newBodyReader(f)
	if err != nil {
		return solve.Snapshot{}, err
	}
	tableWords := make([]uint64, h.tableWords)
	reachWords := make([]uint64, h.reachWords)
	if err := br.readWords(tableWords); err != nil {
		return solve.Snapshot{}, fmt.Errorf("read table: %w", err)
	}
	if err := br.readWords(reachWords); err != nil {
		return solve.Snapshot{}, fmt.Errorf("read bitmap: %w", err)
	}
	if err := br.close(h.checksum); err != nil {
		return solve.Snapshot{}, err
	}

	reach, err := solve.BitmapFromWords(h.indexSpace, reachWords)
	if err != nil {
		return solve.Snapshot{}, err
	}
	var table *solve.Table
	if h.dense {
		table, err = solve.DenseTableFromWords(h.indexSpace, reach, tableWords)
	} else {
		table, err = solve.TableFromWords(h.indexSpace, tableWords)
	}
	if err != nil {
		return solve.Snapshot{}, err
	}
	return solve.Snapshot{Table: table, Reach: reach}, nil
}
