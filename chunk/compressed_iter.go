package chunk

import (
	"math"

	"github.com/rloweth/gorch/internal/bitstream"
)

// CompressedIterator walks a compressed chunk in timestamp order, undoing
// the delta-of-delta and XOR coding sample by sample. It reads the chunk
// but never mutates it; the chunk must not be mutated while an iterator is
// live.
type CompressedIterator struct {
	chunk *CompressedChunk
	r     *bitstream.Reader

	read      uint64
	prevTS    uint64
	prevDelta int64
	prevValue uint64

	trailing uint8
	sigBits  int
}

// Iterator returns a fresh iterator positioned before the first sample.
func (c *CompressedChunk) Iterator() *CompressedIterator {
	return &CompressedIterator{
		chunk:     c,
		r:         bitstream.NewReader(c.data),
		prevTS:    c.baseTimestamp,
		prevValue: math.Float64bits(c.baseValue),
	}
}

// Next returns the next sample, or false when the chunk is exhausted.
func (it *CompressedIterator) Next() (Sample, bool) {
	if it.read >= it.chunk.count {
		return Sample{}, false
	}

	if it.read == 0 {
		// The first sample lives in the header, not the bit stream.
		it.read++
		return Sample{Timestamp: it.chunk.baseTimestamp, Value: it.chunk.baseValue}, true
	}

	// Timestamp: prefix-coded delta-of-delta.
	var dod int64
	switch {
	case !it.r.ReadBit():
		dod = 0
	case !it.r.ReadBit():
		dod = it.readSigned(7)
	case !it.r.ReadBit():
		dod = it.readSigned(9)
	case !it.r.ReadBit():
		dod = it.readSigned(12)
	default:
		dod = it.readSigned(32)
	}

	it.prevDelta += dod
	it.prevTS += uint64(it.prevDelta)

	// Value: XOR against the previous value.
	if it.r.ReadBit() {
		if it.r.ReadBit() {
			// Fresh window: 5-bit leading count, 6-bit significant bit
			// count stored minus one.
			leading := int(it.r.ReadBits(5))
			it.sigBits = int(it.r.ReadBits(6)) + 1
			it.trailing = uint8(64 - leading - it.sigBits)
		}

		if it.sigBits == 0 || it.sigBits > 64 {
			// Corrupt stream: a window reuse before any window was set.
			it.read = it.chunk.count
			return Sample{}, false
		}

		meaningful := it.r.ReadBits(it.sigBits)
		it.prevValue ^= meaningful << it.trailing
	}

	it.read++

	return Sample{Timestamp: it.prevTS, Value: math.Float64frombits(it.prevValue)}, true
}

// readSigned reads an nbits two's-complement payload and sign-extends it.
// The representable range is [-(2^(nbits-1)-1), 2^(nbits-1)].
func (it *CompressedIterator) readSigned(nbits int) int64 {
	v := int64(it.r.ReadBits(nbits))
	if v > 1<<(nbits-1) {
		v -= 1 << nbits
	}

	return v
}
