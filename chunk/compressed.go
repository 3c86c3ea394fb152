package chunk

import (
	"math"
	"math/bits"
	"unsafe"

	"github.com/go-kit/log/level"

	"github.com/rloweth/gorch/errs"
	"github.com/rloweth/gorch/internal/bitstream"
)

// chunkResizeStep is the bounded growth applied to a reconstruction target
// when an append runs out of bits during upsert, del-range, or split. It
// covers the worst-case sample emission (4+32 timestamp bits plus
// 2+5+6+64 value bits) with room to spare.
const chunkResizeStep = 32

// CompressedChunk packs samples with the Gorilla codec.
//
// The first sample lives in the struct header; every later sample is
// emitted into the bit stream as a delta-of-delta timestamp behind a
// variable-length prefix code, followed by the value XOR'd against its
// predecessor under leading/trailing-zero windowing. The encoder state
// needed to continue the stream (previous timestamp, delta, value, and
// window) is part of the chunk and of its wire form, so a deserialized
// chunk keeps accepting appends.
type CompressedChunk struct {
	size  uint64 // byte capacity of data; always a multiple of 8
	count uint64
	idx   uint64 // next write bit offset into data

	baseTimestamp uint64
	baseValue     float64

	prevTimestamp      uint64
	prevTimestampDelta int64
	prevValue          float64
	prevLeading        uint8
	prevTrailing       uint8

	data []byte
}

var _ Chunk = (*CompressedChunk)(nil)

// NewCompressedChunk creates an empty compressed chunk with the given byte
// capacity. The capacity must be a multiple of 8; other values are rounded
// up with a warning, since the bit stream writes whole 64-bit words.
func NewCompressedChunk(sizeBytes uint64) *CompressedChunk {
	if sizeBytes%8 != 0 {
		level.Warn(logger).Log("msg", "chunk size is not a multiple of 8, rounding up", "size", sizeBytes)
		sizeBytes += 8 - sizeBytes%8
	}

	return &CompressedChunk{
		size: sizeBytes,
		data: make([]byte, sizeBytes),
		// Start with saturated windows so the first changed value always
		// opens a fresh window.
		prevLeading:  32,
		prevTrailing: 32,
	}
}

// Encoding implements Chunk.
func (c *CompressedChunk) Encoding() Encoding {
	return EncodingCompressed
}

// NumSamples implements Chunk.
func (c *CompressedChunk) NumSamples() uint64 {
	return c.count
}

// FirstTimestamp implements Chunk.
func (c *CompressedChunk) FirstTimestamp() uint64 {
	if c.count == 0 {
		// The empty chunk's first timestamp keys the series chunk index.
		return 0
	}

	return c.baseTimestamp
}

// LastTimestamp implements Chunk.
func (c *CompressedChunk) LastTimestamp() uint64 {
	if c.count == 0 {
		logEmptyChunkRead("last timestamp")
	}

	return c.prevTimestamp
}

// LastValue implements Chunk.
func (c *CompressedChunk) LastValue() float64 {
	if c.count == 0 {
		logEmptyChunkRead("last value")
	}

	return c.prevValue
}

// Size implements Chunk.
func (c *CompressedChunk) Size(includeStruct bool) uint64 {
	if includeStruct {
		return uint64(unsafe.Sizeof(*c)) + uint64(cap(c.data))
	}

	return c.size
}

// timestampEncodingFor picks the prefix code for a timestamp
// delta-of-delta. Deltas beyond the signed 32-bit window cannot be
// represented and fail the append.
func timestampEncodingFor(dod int64) (prefix uint64, prefixBits, payloadBits int, err error) {
	switch {
	case dod == 0:
		return 0b0, 1, 0, nil
	case dod >= -63 && dod <= 64:
		return 0b10, 2, 7, nil
	case dod >= -255 && dod <= 256:
		return 0b110, 3, 9, nil
	case dod >= -2047 && dod <= 2048:
		return 0b1110, 4, 12, nil
	case dod >= -(1<<31)+1 && dod <= 1<<31:
		return 0b1111, 4, 32, nil
	default:
		return 0, 0, 0, errs.ErrTimestampOutOfRange
	}
}

// valuePlan is the sized emission for one value, computed before any bit is
// written so a full chunk is left untouched.
type valuePlan struct {
	xor      uint64
	sigBits  int
	shift    uint8
	leading  uint8
	trailing uint8
	zero     bool
	inside   bool
	bits     int
}

func (c *CompressedChunk) planValue(v float64) valuePlan {
	xor := math.Float64bits(v) ^ math.Float64bits(c.prevValue)
	if xor == 0 {
		return valuePlan{zero: true, bits: 1}
	}

	leading := uint8(bits.LeadingZeros64(xor))
	if leading > 31 {
		// 5-bit storage caps the leading count; the extra zeros ride along
		// in the significant bits.
		leading = 31
	}
	trailing := uint8(bits.TrailingZeros64(xor))

	if c.prevLeading <= leading && c.prevTrailing <= trailing {
		sig := 64 - int(c.prevLeading) - int(c.prevTrailing)

		return valuePlan{xor: xor, inside: true, sigBits: sig, shift: c.prevTrailing, bits: 2 + sig}
	}

	sig := 64 - int(leading) - int(trailing)

	return valuePlan{xor: xor, leading: leading, trailing: trailing, sigBits: sig, shift: trailing, bits: 2 + 5 + 6 + sig}
}

func (c *CompressedChunk) writeValue(w *bitstream.Writer, p valuePlan) {
	if p.zero {
		w.WriteBit(false)
		return
	}

	w.WriteBit(true)
	if p.inside {
		w.WriteBit(false)
		w.WriteBits(p.xor>>p.shift, p.sigBits)

		return
	}

	w.WriteBit(true)
	w.WriteBits(uint64(p.leading), 5)
	w.WriteBits(uint64(p.sigBits-1), 6)
	w.WriteBits(p.xor>>p.shift, p.sigBits)

	c.prevLeading = p.leading
	c.prevTrailing = p.trailing
}

// Append implements Chunk. The emission is sized up front; when the bit
// budget is short the chunk is returned untouched with errs.ErrChunkFull.
// A delta-of-delta beyond the 32-bit window also reports the chunk full so
// the caller rolls over instead of losing precision.
func (c *CompressedChunk) Append(s Sample) error {
	if c.count == 0 {
		c.baseTimestamp = s.Timestamp
		c.baseValue = s.Value
		c.prevTimestamp = s.Timestamp
		c.prevTimestampDelta = 0
		c.prevValue = s.Value
		c.count = 1

		return nil
	}

	delta := int64(s.Timestamp - c.prevTimestamp)
	dod := delta - c.prevTimestampDelta

	prefix, prefixBits, payloadBits, err := timestampEncodingFor(dod)
	if err != nil {
		return errs.ErrChunkFull
	}

	plan := c.planValue(s.Value)

	needed := uint64(prefixBits + payloadBits + plan.bits)
	if c.idx+needed > c.size*8 {
		return errs.ErrChunkFull
	}

	w := bitstream.NewWriter(c.data, c.idx)
	w.WriteBits(prefix, prefixBits)
	if payloadBits > 0 {
		w.WriteBits(uint64(dod), payloadBits)
	}
	c.writeValue(w, plan)

	c.idx = w.Index()
	c.prevTimestamp = s.Timestamp
	c.prevTimestampDelta = delta
	c.prevValue = s.Value
	c.count++

	return nil
}

// grow extends the data buffer by step zero-filled bytes. Only the
// reconstruction paths grow; the public Append never does.
func (c *CompressedChunk) grow(step uint64) {
	data := make([]byte, c.size+step)
	copy(data, c.data)
	c.data = data
	c.size += step
}

// ensureAppend appends to a reconstruction target, growing it by
// chunkResizeStep and retrying when full. The retry failing is a
// programming error.
func (c *CompressedChunk) ensureAppend(s Sample) {
	if err := c.Append(s); err == nil {
		return
	}

	c.grow(chunkResizeStep)
	if err := c.Append(s); err != nil {
		panic("chunk: append after grow must succeed")
	}
}

// trim releases the unwritten tail of the data buffer, keeping one spare
// byte and 8-byte alignment for the word-wise write path.
func (c *CompressedChunk) trim() {
	if c.size*8 < c.idx {
		level.Error(logger).Log("msg", "chunk bit cursor beyond allocated buffer", "idx", c.idx, "size", c.size)
		return
	}

	excess := (c.size*8 - c.idx) / 8
	if excess <= 1 {
		return
	}

	newSize := c.size - excess + 1
	newSize += 8 - newSize%8
	if newSize >= c.size {
		return
	}

	data := make([]byte, newSize)
	copy(data, c.data[:newSize])
	c.data = data
	c.size = newSize
}

// Clone implements Chunk.
func (c *CompressedChunk) Clone() Chunk {
	dup := *c
	dup.data = make([]byte, len(c.data))
	copy(dup.data, c.data)

	return &dup
}

// Split implements Chunk. Both halves are rebuilt by streaming the source
// through fresh chunks, then trimmed to their aligned minimum footprint.
func (c *CompressedChunk) Split() Chunk {
	split := c.count / 2
	keep := c.count - split

	first := NewCompressedChunk(c.size)
	second := NewCompressedChunk(c.size)

	it := c.Iterator()
	for i := uint64(0); i < keep; i++ {
		s, _ := it.Next()
		first.ensureAppend(s)
	}
	for i := uint64(0); i < split; i++ {
		s, _ := it.Next()
		second.ensureAppend(s)
	}

	first.trim()
	second.trim()

	*c = *first

	return second
}

// Upsert implements Chunk. The samples stream through a fresh target in
// timestamp order with the incoming sample merged in; the target's buffer
// is swapped into the chunk only once the rebuild succeeded, so a rejected
// duplicate leaves the original untouched.
func (c *CompressedChunk) Upsert(s Sample, policy DuplicatePolicy) (int, error) {
	target := NewCompressedChunk(c.size)
	it := c.Iterator()

	var (
		cur Sample
		ok  bool
	)

	sizeDelta := 0
	n := c.count

	i := uint64(0)
	for ; i < n; i++ {
		cur, ok = it.Next()
		if cur.Timestamp >= s.Timestamp {
			break
		}
		target.ensureAppend(cur)
	}

	pending := i < n
	resolved := s

	if pending && cur.Timestamp == s.Timestamp {
		value, err := ResolveDuplicate(policy, cur.Value, s.Value)
		if err != nil {
			return 0, err
		}
		resolved.Value = value

		// Consume the incumbent; the merged sample replaces it.
		cur, ok = it.Next()
		sizeDelta--
	}

	target.ensureAppend(resolved)
	sizeDelta++

	if pending {
		for ok {
			target.ensureAppend(cur)
			cur, ok = it.Next()
		}
	}

	*c = *target

	return sizeDelta, nil
}

// DelRange implements Chunk. Matching samples are dropped while streaming
// through a fresh target, which is then swapped in.
func (c *CompressedChunk) DelRange(start, end uint64) uint64 {
	target := NewCompressedChunk(c.size)
	it := c.Iterator()

	var deleted uint64
	for {
		s, ok := it.Next()
		if !ok {
			break
		}
		if s.Timestamp >= start && s.Timestamp <= end {
			deleted++
			continue
		}
		target.ensureAppend(s)
	}

	*c = *target

	return deleted
}

// Relocate swaps the owned data buffer for newData, which must hold the
// same bytes at a new address, and returns the old buffer. It is the
// defragmentation hook: the allocator has already copied, the chunk only
// repoints.
func (c *CompressedChunk) Relocate(newData []byte) []byte {
	if uint64(len(newData)) != c.size {
		panic("chunk: relocation buffer size mismatch")
	}

	old := c.data
	c.data = newData

	return old
}

// ProcessRange implements Chunk.
func (c *CompressedChunk) ProcessRange(start, end uint64, out *EnrichedChunk, reverse bool) {
	if reverse {
		c.decodeRangeReverse(start, end, out)
		return
	}

	c.decodeRange(start, end, out)
}

func (c *CompressedChunk) decodeRange(start, end uint64, out *EnrichedChunk) {
	out.Reset()

	if c.count == 0 || end < start || c.baseTimestamp > end || c.prevTimestamp < start {
		return
	}

	it := c.Iterator()

	// Skip ahead to the first sample inside the range.
	s, ok := it.Next()
	for ok && s.Timestamp < start {
		s, ok = it.Next()
	}
	if !ok || s.Timestamp > end {
		// Timestamps straddle the range with nothing inside it.
		return
	}

	for {
		out.appendSample(s.Timestamp, s.Value)

		s, ok = it.Next()
		if !ok || s.Timestamp > end {
			return
		}
	}
}

func (c *CompressedChunk) decodeRangeReverse(start, end uint64, out *EnrichedChunk) {
	out.Reset()

	if c.count == 0 || end < start || c.baseTimestamp > end || c.prevTimestamp < start {
		return
	}

	it := c.Iterator()

	s, ok := it.Next()
	for ok && s.Timestamp < start {
		s, ok = it.Next()
	}
	if !ok || s.Timestamp > end {
		return
	}

	// Fill the backing from the tail so the final window reads in
	// descending timestamp order without a second pass.
	hi := int(c.count)
	pos := hi - 1
	for {
		out.ogTimestamps[pos] = s.Timestamp
		out.ogValues[pos] = s.Value
		pos--

		s, ok = it.Next()
		if !ok || s.Timestamp > end {
			break
		}
	}

	out.setReverseWindow(pos+1, hi)
}

// Serialize implements Chunk. Wire layout:
//
//	size u64 | count u64 | idx u64 | base_value bits u64 | base_timestamp u64 |
//	prev_timestamp u64 | prev_timestamp_delta u64 | prev_value bits u64 |
//	prev_leading u64 | prev_trailing u64 | data bytes(size)
func (c *CompressedChunk) Serialize(sink Sink) {
	sink.WriteUint64(c.size)
	sink.WriteUint64(c.count)
	sink.WriteUint64(c.idx)
	sink.WriteUint64(math.Float64bits(c.baseValue))
	sink.WriteUint64(c.baseTimestamp)
	sink.WriteUint64(c.prevTimestamp)
	sink.WriteUint64(uint64(c.prevTimestampDelta))
	sink.WriteUint64(math.Float64bits(c.prevValue))
	sink.WriteUint64(uint64(c.prevLeading))
	sink.WriteUint64(uint64(c.prevTrailing))
	sink.WriteBytes(c.data)
}

// DeserializeCompressedChunk reads the compressed wire layout from src,
// taking ownership of the data buffer where the source permits zero-copy.
func DeserializeCompressedChunk(src Source) (*CompressedChunk, error) {
	fields := make([]uint64, 10)
	for i := range fields {
		v, err := src.ReadUint64()
		if err != nil {
			return nil, errs.ErrDecode
		}
		fields[i] = v
	}

	data, err := src.ReadBytes()
	if err != nil {
		return nil, errs.ErrDecode
	}

	c := &CompressedChunk{
		size:               fields[0],
		count:              fields[1],
		idx:                fields[2],
		baseValue:          math.Float64frombits(fields[3]),
		baseTimestamp:      fields[4],
		prevTimestamp:      fields[5],
		prevTimestampDelta: int64(fields[6]),
		prevValue:          math.Float64frombits(fields[7]),
		data:               data,
	}

	if uint64(len(data)) != c.size || c.size%8 != 0 || c.idx > c.size*8 ||
		(c.count == 0 && c.idx != 0) || fields[8] > 64 || fields[9] > 64 {
		return nil, errs.ErrDecode
	}

	c.prevLeading = uint8(fields[8])
	c.prevTrailing = uint8(fields[9])

	return c, nil
}
