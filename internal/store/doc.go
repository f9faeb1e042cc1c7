// Package store persists solver output: mid-solve checkpoints that a run
// can resume from, and the final outcome database queryable by state id.
// Files are zstd-compressed containers with a magic/version header and a
// CRC32 over the uncompressed body.
package store
