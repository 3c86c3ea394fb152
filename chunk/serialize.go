package chunk

import (
	"github.com/rloweth/gorch/endian"
	"github.com/rloweth/gorch/errs"
)

// Sink is the byte sink a chunk serializes into. Implementations must not
// reenter the chunk. The same sink contract backs local snapshots and
// cross-node transport, so serialization is byte-identical for both.
type Sink interface {
	// WriteUint64 emits one 64-bit word in the sink's byte order.
	WriteUint64(v uint64)
	// WriteBytes emits a length-delimited byte buffer.
	WriteBytes(b []byte)
}

// Source is the byte source a chunk deserializes from. Read failures
// surface as errors; the chunk maps them to errs.ErrDecode.
type Source interface {
	// ReadUint64 reads one 64-bit word in the source's byte order.
	ReadUint64() (uint64, error)
	// ReadBytes reads a length-delimited byte buffer. Ownership of the
	// returned slice transfers to the caller; sources return a view of
	// their backing where they can.
	ReadBytes() ([]byte, error)
}

// BufferSink is an in-memory Sink. Words are emitted in the engine's byte
// order; the zero value is not usable, construct with NewBufferSink.
type BufferSink struct {
	buf    []byte
	engine endian.EndianEngine
}

// NewBufferSink creates a sink writing words in the given byte order. A nil
// engine selects the host's native order, matching the wire contract that
// writers emit host-order words.
func NewBufferSink(engine endian.EndianEngine) *BufferSink {
	if engine == nil {
		engine = endian.GetNativeEngine()
	}

	return &BufferSink{engine: engine}
}

// WriteUint64 implements Sink.
func (s *BufferSink) WriteUint64(v uint64) {
	s.buf = s.engine.AppendUint64(s.buf, v)
}

// WriteBytes implements Sink.
func (s *BufferSink) WriteBytes(b []byte) {
	s.buf = s.engine.AppendUint64(s.buf, uint64(len(b)))
	s.buf = append(s.buf, b...)
}

// Bytes returns the accumulated stream. The slice is valid until the next
// write.
func (s *BufferSink) Bytes() []byte {
	return s.buf
}

// Reset drops the accumulated stream but keeps the allocation.
func (s *BufferSink) Reset() {
	s.buf = s.buf[:0]
}

// BufferSource is an in-memory Source over a byte stream produced by
// BufferSink with the same engine.
type BufferSource struct {
	buf    []byte
	off    int
	engine endian.EndianEngine
}

// NewBufferSource creates a source reading words in the given byte order
// from data. A nil engine selects the host's native order.
func NewBufferSource(data []byte, engine endian.EndianEngine) *BufferSource {
	if engine == nil {
		engine = endian.GetNativeEngine()
	}

	return &BufferSource{buf: data, engine: engine}
}

// ReadUint64 implements Source.
func (s *BufferSource) ReadUint64() (uint64, error) {
	if s.off+8 > len(s.buf) {
		return 0, errs.ErrDecode
	}

	v := s.engine.Uint64(s.buf[s.off : s.off+8])
	s.off += 8

	return v, nil
}

// ReadBytes implements Source. The returned slice is a zero-copy view of
// the source buffer; ownership transfers to the caller.
func (s *BufferSource) ReadBytes() ([]byte, error) {
	n, err := s.ReadUint64()
	if err != nil {
		return nil, err
	}
	if uint64(s.off)+n > uint64(len(s.buf)) {
		return nil, errs.ErrDecode
	}

	b := s.buf[s.off : s.off+int(n)]
	s.off += int(n)

	return b, nil
}

// Remaining returns the number of unread bytes.
func (s *BufferSource) Remaining() int {
	return len(s.buf) - s.off
}
