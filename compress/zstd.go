package compress

// ZstdCompressor favors compression ratio over speed; the right choice for
// cold snapshots and long-term retention. The implementation is selected at
// build time: cgo builds bind libzstd, pure-Go builds use a native encoder.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd codec with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
