// Package gorch implements the per-shard chunk layer of a time-series
// storage engine: bounded containers of timestamp/value samples with a
// Gorilla-compressed and an uncompressed representation, ordered upserts,
// range deletes, deterministic splits, and byte-exact serialization for
// snapshot, restore, and cross-node transport.
//
// # Core packages
//
//   - chunk: the two representations behind one operation surface, the
//     range decoder, and the wire formats.
//   - snapshot: a self-describing, integrity-checked frame around the
//     chunk wire formats for io.Writer/io.Reader persistence.
//   - compress: the optional snapshot payload codecs (Zstd, S2, LZ4).
//
// # Basic usage
//
// Appending and reading back a compressed series chunk:
//
//	c := gorch.NewCompressedChunk(4096)
//	for i, v := range values {
//	    if err := c.Append(chunk.Sample{Timestamp: start + uint64(i)*1000, Value: v}); err != nil {
//	        // errs.ErrChunkFull: allocate a successor and continue there
//	    }
//	}
//
//	out := chunk.NewEnrichedChunk(512)
//	c.ProcessRange(start, end, out, false)
//	for i, ts := range out.Timestamps {
//	    fmt.Println(ts, out.Values[i])
//	}
//
// Snapshotting a chunk to disk and restoring it:
//
//	var buf bytes.Buffer
//	_ = gorch.WriteSnapshot(&buf, c, snapshot.WithCompression(compress.TypeS2))
//	restored, _ := gorch.ReadSnapshot(&buf)
//
// This package provides thin constructors over the chunk and snapshot
// packages; use those directly for fine-grained control.
package gorch

import (
	"io"

	"github.com/rloweth/gorch/chunk"
	"github.com/rloweth/gorch/snapshot"
)

// NewChunk creates an empty chunk of the given representation and byte
// capacity.
func NewChunk(enc chunk.Encoding, sizeBytes uint64) (chunk.Chunk, error) {
	return chunk.New(enc, sizeBytes)
}

// NewUncompressedChunk creates an empty flat-array chunk able to hold
// sizeBytes/chunk.SampleSize samples.
func NewUncompressedChunk(sizeBytes uint64) *chunk.UncompressedChunk {
	return chunk.NewUncompressedChunk(sizeBytes)
}

// NewCompressedChunk creates an empty Gorilla-compressed chunk with the
// given byte capacity, rounded up to a multiple of 8.
func NewCompressedChunk(sizeBytes uint64) *chunk.CompressedChunk {
	return chunk.NewCompressedChunk(sizeBytes)
}

// WriteSnapshot frames c into w; see the snapshot package for options.
func WriteSnapshot(w io.Writer, c chunk.Chunk, opts ...snapshot.Option) error {
	return snapshot.Write(w, c, opts...)
}

// ReadSnapshot reads one framed chunk from r.
func ReadSnapshot(r io.Reader) (chunk.Chunk, error) {
	return snapshot.Read(r)
}
