package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Both file formats share the same container: a fixed-size little-endian
// header followed by a zstd stream. The header records a CRC32 of the
// uncompressed body; the checksum field is patched in after the stream is
// written, and files are written to a temp path and renamed into place so a
// crash never leaves a half-written file behind.

var (
	ErrBadMagic    = errors.New("not a squadro data file")
	ErrBadVersion  = errors.New("unsupported file version")
	ErrBadCodec    = errors.New("file written with an incompatible state codec")
	ErrBadChecksum = errors.New("body checksum mismatch")
)

// wordChunk is the number of uint64 words moved per I/O buffer.
const wordChunk = 1 << 17

// bodyWriter compresses the body stream and checksums the uncompressed
// bytes as they pass through.
type bodyWriter struct {
	zw  *zstd.Encoder
	crc hash.Hash32
	buf []byte
}

func newBodyWriter(w io.Writer) (*bodyWriter, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, err
	}
	return &bodyWriter{
		zw:  zw,
		crc: crc32.NewIEEE(),
		buf: make([]byte, 8*wordChunk),
	}, nil
}

func (bw *bodyWriter) writeWords(words []uint64) error {
	for off := 0; off < len(words); off += wordChunk {
		end := off + wordChunk
		if end > len(words) {
			end = len(words)
		}
		for i, w := range words[off:end] {
			binary.LittleEndian.PutUint64(bw.buf[i*8:], w)
		}
		chunk := bw.buf[:(end-off)*8]
		bw.crc.Write(chunk)
		if _, err := bw.zw.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (bw *bodyWriter) close() (uint32, error) {
	if err := bw.zw.Close(); err != nil {
		return 0, err
	}
	return bw.crc.Sum32(), nil
}

// bodyReader decompresses and checksums the body stream.
type bodyReader struct {
	zr  *zstd.Decoder
	crc hash.Hash32
	buf []byte
}

func newBodyReader(r io.Reader) (*bodyReader, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &bodyReader{
		zr:  zr,
		crc: crc32.NewIEEE(),
		buf: make([]byte, 8*wordChunk),
	}, nil
}

func (br *bodyReader) readWords(words []uint64) error {
	for off := 0; off < len(words); off += wordChunk {
		end := off + wordChunk
		if end > len(words) {
			end = len(words)
		}
		chunk := br.buf[:(end-off)*8]
		if _, err := io.ReadFull(br.zr, chunk); err != nil {
			return err
		}
		br.crc.Write(chunk)
		for i := range words[off:end] {
			words[off+i] = binary.LittleEndian.Uint64(chunk[i*8:])
		}
	}
	return nil
}

func (br *bodyReader) close(wantCRC uint32) error {
	defer br.zr.Close()
	// The stream must end exactly where the header said it would.
	var scratch [1]byte
	if _, err := br.zr.Read(scratch[:]); err != io.EOF {
		return fmt.Errorf("trailing data after body")
	}
	if br.crc.Sum32() != wantCRC {
		return ErrBadChecksum
	}
	return nil
}

// writeFile writes header+body to a temp file, patches the checksum at
// crcOffset, and renames the result into place.
func writeFile(path string, header []byte, crcOffset int, body func(*bodyWriter) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(header); err != nil {
		return err
	}
	bw, err := newBodyWriter(f)
	if err != nil {
		return err
	}
	if err = body(bw); err != nil {
		return err
	}
	crc, err := bw.close()
	if err != nil {
		return err
	}

	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)
	if _, err = f.WriteAt(crcBuf[:], int64(crcOffset)); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
