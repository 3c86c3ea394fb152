// Package compress provides the payload codecs available to the snapshot
// container: Zstd, S2, LZ4, and a pass-through.
//
// Chunk payloads are already densely coded by the chunk layer, so snapshot
// compression is optional; it pays off mainly for uncompressed-representation
// chunks and for batching many chunks over the wire.
package compress
