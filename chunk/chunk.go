package chunk

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/rloweth/gorch/errs"
)

// Encoding identifies a chunk representation on the wire and in dispatch.
type Encoding uint8

const (
	// EncodingUncompressed is the flat sample-array representation.
	EncodingUncompressed Encoding = 0x1
	// EncodingCompressed is the Gorilla bit-packed representation.
	EncodingCompressed Encoding = 0x2
)

func (e Encoding) String() string {
	switch e {
	case EncodingUncompressed:
		return "Uncompressed"
	case EncodingCompressed:
		return "Compressed"
	default:
		return "Unknown"
	}
}

// Valid reports whether e names a known representation.
func (e Encoding) Valid() bool {
	return e == EncodingUncompressed || e == EncodingCompressed
}

// Chunk is the uniform operation surface over both representations.
//
// All methods are single-threaded with respect to the chunk; the owning
// series coordinates concurrency. No method blocks or calls back into the
// host runtime.
type Chunk interface {
	// Encoding returns the representation tag.
	Encoding() Encoding

	// NumSamples returns the number of live samples.
	NumSamples() uint64

	// FirstTimestamp returns the timestamp of the first sample, or 0 when
	// the chunk is empty. Only the initial chunk of a series may be empty.
	FirstTimestamp() uint64

	// LastTimestamp returns the timestamp of the last sample. On an empty
	// chunk it logs an error and returns 0; callers are expected to delete
	// empty chunks rather than read them.
	LastTimestamp() uint64

	// LastValue returns the value of the last sample, with the same empty
	// chunk contract as LastTimestamp.
	LastValue() float64

	// Size returns the chunk footprint in bytes: the struct plus buffer
	// allocations when includeStruct is set, otherwise just the data
	// buffer's byte capacity.
	Size(includeStruct bool) uint64

	// Append adds a sample after all existing samples. It returns
	// errs.ErrChunkFull when the chunk has no room; the chunk is not
	// mutated in that case and the caller rolls over to a successor.
	// Timestamps must be strictly greater than LastTimestamp; out-of-order
	// samples go through Upsert.
	Append(s Sample) error

	// Upsert inserts a sample at its timestamp-ordered position, resolving
	// a timestamp collision with the supplied policy. It returns the change
	// in sample count (0 when a duplicate was merged, +1 when a sample was
	// inserted) and errs.ErrDuplicateRejected when the policy refuses the
	// incoming sample. On error the chunk is unchanged.
	Upsert(s Sample, policy DuplicatePolicy) (int, error)

	// DelRange removes all samples whose timestamp lies in the inclusive
	// [start, end] interval and returns the number removed. An emptied
	// chunk is left for the owning series to reclaim.
	DelRange(start, end uint64) uint64

	// Split moves the upper half of the samples (NumSamples/2 of them) into
	// a freshly allocated chunk of the same representation and returns it.
	// Both halves are independently valid.
	Split() Chunk

	// Clone returns an independent deep copy.
	Clone() Chunk

	// ProcessRange decodes the samples whose timestamp lies in [start, end]
	// into out, columnar, in forward or reverse timestamp order.
	ProcessRange(start, end uint64, out *EnrichedChunk, reverse bool)

	// Serialize writes the representation's wire layout to the sink.
	Serialize(sink Sink)
}

// New creates an empty chunk of the given representation and byte capacity.
func New(enc Encoding, sizeBytes uint64) (Chunk, error) {
	switch enc {
	case EncodingUncompressed:
		return NewUncompressedChunk(sizeBytes), nil
	case EncodingCompressed:
		return NewCompressedChunk(sizeBytes), nil
	default:
		return nil, errs.ErrInvalidEncoding
	}
}

// Deserialize reads a chunk of the given representation from the source.
// On failure the partially constructed chunk is discarded and errs.ErrDecode
// is returned.
func Deserialize(enc Encoding, src Source) (Chunk, error) {
	switch enc {
	case EncodingUncompressed:
		return DeserializeUncompressedChunk(src)
	case EncodingCompressed:
		return DeserializeCompressedChunk(src)
	default:
		return nil, errs.ErrInvalidEncoding
	}
}

// logger receives the chunk layer's diagnostic events. It defaults to nop;
// embedders route it into their logging stack with SetLogger.
var logger = log.NewNopLogger()

// SetLogger routes chunk-layer diagnostics to l.
func SetLogger(l log.Logger) {
	if l == nil {
		l = log.NewNopLogger()
	}
	logger = l
}

func logEmptyChunkRead(what string) {
	level.Error(logger).Log("msg", "read on empty chunk", "field", what)
}
