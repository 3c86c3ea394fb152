package chunk

// EnrichedChunk is the caller-owned columnar scratch buffer that range
// decodes write into. The two column slices are views into fixed backing
// arrays; the compressed reverse decode fills the backing from the tail and
// then advances the views, the uncompressed one writes its samples in
// descending order from the front, so the result is contiguous either way.
// Reusing one
// EnrichedChunk across many ProcessRange calls keeps the read path free of
// allocation.
type EnrichedChunk struct {
	// Timestamps and Values hold the decoded columns, parallel by index.
	Timestamps []uint64
	Values     []float64
	// Reversed reports whether the columns are in descending timestamp
	// order.
	Reversed bool

	// Backing arrays; the exported views always alias these.
	ogTimestamps []uint64
	ogValues     []float64
}

// NewEnrichedChunk allocates scratch for up to capacity samples. Capacity
// must be at least the largest sample count of any chunk it will decode.
func NewEnrichedChunk(capacity int) *EnrichedChunk {
	e := &EnrichedChunk{
		ogTimestamps: make([]uint64, capacity),
		ogValues:     make([]float64, capacity),
	}
	e.Reset()

	return e
}

// Reset empties the views and clears the direction flag. Decoders call it
// on entry; callers may also call it to drop a previous result.
func (e *EnrichedChunk) Reset() {
	e.Timestamps = e.ogTimestamps[:0]
	e.Values = e.ogValues[:0]
	e.Reversed = false
}

// NumSamples returns the number of decoded samples in the views.
func (e *EnrichedChunk) NumSamples() int {
	return len(e.Timestamps)
}

// Capacity returns the maximum number of samples the scratch can hold.
func (e *EnrichedChunk) Capacity() int {
	return len(e.ogTimestamps)
}

// appendSample pushes one sample onto the forward views.
func (e *EnrichedChunk) appendSample(ts uint64, v float64) {
	e.Timestamps = append(e.Timestamps, ts)
	e.Values = append(e.Values, v)
}

// setReverseWindow exposes the backing range [lo, hi) as the views and
// marks the result reversed. Reverse decoders fill the backing downward
// from hi-1 and hand the final window here.
func (e *EnrichedChunk) setReverseWindow(lo, hi int) {
	e.Timestamps = e.ogTimestamps[lo:hi]
	e.Values = e.ogValues[lo:hi]
	e.Reversed = true
}
