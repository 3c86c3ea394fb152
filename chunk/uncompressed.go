package chunk

import (
	"math"
	"unsafe"

	"github.com/rloweth/gorch/endian"
	"github.com/rloweth/gorch/errs"
)

// UncompressedChunk stores samples as a flat timestamp-ordered array inside
// a fixed byte budget. It is the representation of choice when decode cost
// matters more than footprint.
type UncompressedChunk struct {
	baseTimestamp uint64
	size          uint64 // byte capacity of the samples buffer
	samples       []Sample
}

var _ Chunk = (*UncompressedChunk)(nil)

// NewUncompressedChunk creates an empty chunk able to hold
// sizeBytes/SampleSize samples.
func NewUncompressedChunk(sizeBytes uint64) *UncompressedChunk {
	return &UncompressedChunk{
		size:    sizeBytes,
		samples: make([]Sample, 0, sizeBytes/SampleSize),
	}
}

// Encoding implements Chunk.
func (c *UncompressedChunk) Encoding() Encoding {
	return EncodingUncompressed
}

// NumSamples implements Chunk.
func (c *UncompressedChunk) NumSamples() uint64 {
	return uint64(len(c.samples))
}

// FirstTimestamp implements Chunk.
func (c *UncompressedChunk) FirstTimestamp() uint64 {
	if len(c.samples) == 0 {
		// The empty chunk's first timestamp keys the series chunk index;
		// only the initial chunk can be empty.
		return 0
	}

	return c.samples[0].Timestamp
}

// LastTimestamp implements Chunk.
func (c *UncompressedChunk) LastTimestamp() uint64 {
	if len(c.samples) == 0 {
		logEmptyChunkRead("last timestamp")
		return 0
	}

	return c.samples[len(c.samples)-1].Timestamp
}

// LastValue implements Chunk.
func (c *UncompressedChunk) LastValue() float64 {
	if len(c.samples) == 0 {
		logEmptyChunkRead("last value")
		return 0
	}

	return c.samples[len(c.samples)-1].Value
}

// Size implements Chunk.
func (c *UncompressedChunk) Size(includeStruct bool) uint64 {
	if includeStruct {
		return uint64(unsafe.Sizeof(*c)) + uint64(cap(c.samples))*SampleSize
	}

	return c.size
}

func (c *UncompressedChunk) isFull() bool {
	return uint64(len(c.samples)) == c.size/SampleSize
}

// Append implements Chunk.
func (c *UncompressedChunk) Append(s Sample) error {
	if c.isFull() {
		return errs.ErrChunkFull
	}

	if len(c.samples) == 0 {
		c.baseTimestamp = s.Timestamp
	}

	c.samples = append(c.samples, s)

	return nil
}

// Upsert implements Chunk. The insert shifts the tail right in place; when
// the buffer is already full the byte budget grows by one SampleSize, which
// is the bounded-growth concession the upsert path is allowed.
func (c *UncompressedChunk) Upsert(s Sample, policy DuplicatePolicy) (int, error) {
	// Locate the first sample at or after the incoming timestamp.
	i := 0
	for ; i < len(c.samples); i++ {
		if s.Timestamp <= c.samples[i].Timestamp {
			break
		}
	}

	if i < len(c.samples) && c.samples[i].Timestamp == s.Timestamp {
		resolved, err := ResolveDuplicate(policy, c.samples[i].Value, s.Value)
		if err != nil {
			return 0, err
		}
		c.samples[i].Value = resolved

		return 0, nil
	}

	if i == 0 {
		c.baseTimestamp = s.Timestamp
	}

	if c.isFull() {
		c.size += SampleSize
	}

	c.samples = append(c.samples, Sample{})
	copy(c.samples[i+1:], c.samples[i:])
	c.samples[i] = s

	return 1, nil
}

// DelRange implements Chunk.
func (c *UncompressedChunk) DelRange(start, end uint64) uint64 {
	kept := make([]Sample, 0, c.size/SampleSize)
	for _, s := range c.samples {
		if s.Timestamp >= start && s.Timestamp <= end {
			continue
		}
		kept = append(kept, s)
	}

	deleted := uint64(len(c.samples) - len(kept))
	c.samples = kept
	if len(kept) > 0 {
		c.baseTimestamp = kept[0].Timestamp
	} else {
		c.baseTimestamp = 0
	}

	return deleted
}

// Split implements Chunk. The upper half moves into the returned chunk and
// both halves are trimmed to their exact sample footprint.
func (c *UncompressedChunk) Split() Chunk {
	split := uint64(len(c.samples)) / 2
	keep := uint64(len(c.samples)) - split

	next := NewUncompressedChunk(split * SampleSize)
	for _, s := range c.samples[keep:] {
		// Cannot fail: the successor was sized for exactly these samples.
		_ = next.Append(s)
	}

	trimmed := make([]Sample, keep)
	copy(trimmed, c.samples[:keep])
	c.samples = trimmed
	c.size = keep * SampleSize

	return next
}

// Clone implements Chunk.
func (c *UncompressedChunk) Clone() Chunk {
	dup := &UncompressedChunk{
		baseTimestamp: c.baseTimestamp,
		size:          c.size,
		samples:       make([]Sample, len(c.samples), cap(c.samples)),
	}
	copy(dup.samples, c.samples)

	return dup
}

// Relocate swaps the owned sample buffer for newSamples, which must hold
// the same samples at a new address, and returns the old buffer. It is the
// defragmentation hook: the allocator has already copied, the chunk only
// repoints.
func (c *UncompressedChunk) Relocate(newSamples []Sample) []Sample {
	if len(newSamples) != len(c.samples) {
		panic("chunk: relocation buffer size mismatch")
	}

	old := c.samples
	c.samples = newSamples

	return old
}

// ProcessRange implements Chunk.
func (c *UncompressedChunk) ProcessRange(start, end uint64, out *EnrichedChunk, reverse bool) {
	out.Reset()

	n := len(c.samples)
	if n == 0 || end < start || c.baseTimestamp > end || c.samples[n-1].Timestamp < start {
		return
	}

	// First index inside the range.
	si := n
	i := 0
	for ; i < n; i++ {
		if c.samples[i].Timestamp >= start {
			si = i
			break
		}
	}
	if si == n { // every timestamp is below start
		return
	}

	// Last index inside the range.
	ei := n - 1
	for ; i < n; i++ {
		if c.samples[i].Timestamp > end {
			ei = i - 1
			break
		}
	}

	if ei < si {
		return
	}

	if reverse {
		for j := ei; j >= si; j-- {
			out.appendSample(c.samples[j].Timestamp, c.samples[j].Value)
		}
		out.Reversed = true
	} else {
		for j := si; j <= ei; j++ {
			out.appendSample(c.samples[j].Timestamp, c.samples[j].Value)
		}
	}
}

// Serialize implements Chunk. Wire layout:
//
//	base_timestamp u64 | num_samples u64 | size u64 | samples_raw bytes(size)
//
// The raw buffer carries the live samples in host order followed by a
// zeroed tail up to the byte capacity.
func (c *UncompressedChunk) Serialize(sink Sink) {
	sink.WriteUint64(c.baseTimestamp)
	sink.WriteUint64(uint64(len(c.samples)))
	sink.WriteUint64(c.size)

	engine := endian.GetNativeEngine()
	raw := make([]byte, c.size)
	for i, s := range c.samples {
		engine.PutUint64(raw[i*SampleSize:], s.Timestamp)
		engine.PutUint64(raw[i*SampleSize+8:], math.Float64bits(s.Value))
	}
	sink.WriteBytes(raw)
}

// DeserializeUncompressedChunk reads the uncompressed wire layout from src.
func DeserializeUncompressedChunk(src Source) (*UncompressedChunk, error) {
	baseTimestamp, err := src.ReadUint64()
	if err != nil {
		return nil, errs.ErrDecode
	}
	numSamples, err := src.ReadUint64()
	if err != nil {
		return nil, errs.ErrDecode
	}
	size, err := src.ReadUint64()
	if err != nil {
		return nil, errs.ErrDecode
	}
	raw, err := src.ReadBytes()
	if err != nil {
		return nil, errs.ErrDecode
	}

	if uint64(len(raw)) != size || numSamples > size/SampleSize {
		return nil, errs.ErrDecode
	}

	capacity := size / SampleSize
	c := &UncompressedChunk{
		baseTimestamp: baseTimestamp,
		size:          size,
		samples:       make([]Sample, numSamples, capacity),
	}

	engine := endian.GetNativeEngine()
	for i := range c.samples {
		c.samples[i].Timestamp = engine.Uint64(raw[i*SampleSize:])
		c.samples[i].Value = math.Float64frombits(engine.Uint64(raw[i*SampleSize+8:]))
	}

	return c, nil
}
