// Package chunk implements the per-series storage unit of the gorch engine:
// a bounded-capacity container of timestamp/value samples.
//
// Two representations share one operation surface:
//
//   - UncompressedChunk keeps a flat sample array and trades space for
//     cheap random access and in-place mutation.
//   - CompressedChunk packs samples with the Gorilla codec: delta-of-delta
//     timestamps behind variable-length prefix codes, and XOR'd values with
//     leading/trailing-zero windowing, written bit by bit into an 8-byte
//     aligned buffer.
//
// A chunk accepts appends until it reports errs.ErrChunkFull; the owning
// series then allocates a successor, or splits the chunk when upserting
// into the middle of a sealed range. Out-of-order writes go through Upsert,
// which resolves timestamp collisions with a caller-supplied
// DuplicatePolicy. Range reads decode into a caller-owned EnrichedChunk so
// the hot path allocates nothing.
//
// Chunks are exclusively owned and single-threaded; the owning series
// coordinates concurrent access. Serialization is byte-exact against the
// Sink/Source primitives and identical for snapshot and cross-node use.
package chunk
