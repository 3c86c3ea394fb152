// Package snapshot frames serialized chunks for persistence and transport.
//
// A frame is self-describing and integrity-checked:
//
//	magic u32 | version u8 | encoding u8 | compression u8 |
//	payload_len u64 | payload | digest u64
//
// The payload is the chunk's own wire layout emitted through a
// little-endian sink, optionally compressed; the digest is the xxHash64 of
// the payload as stored. Header fields are little-endian. The chunk wire
// bytes inside the payload are exactly what chunk.Serialize produces, so
// the frame wraps the compatibility boundary without altering it.
package snapshot

import (
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/rloweth/gorch/chunk"
	"github.com/rloweth/gorch/compress"
	"github.com/rloweth/gorch/endian"
	"github.com/rloweth/gorch/errs"
	"github.com/rloweth/gorch/internal/options"
	"github.com/rloweth/gorch/internal/pool"
)

const (
	magicNumber uint32 = 0x47524348 // "GRCH"
	formatV1    byte   = 1

	headerSize = 4 + 1 + 1 + 1 + 8
	digestSize = 8

	// maxPayloadSize bounds what the reader will allocate for a single
	// frame; chunks are orders of magnitude smaller.
	maxPayloadSize = 1 << 30
)

type config struct {
	compression compress.Type
}

// Option configures snapshot writing.
type Option = options.Option[*config]

// WithCompression selects the payload codec. The default is TypeNone:
// compressed-representation chunks rarely benefit, and the choice is
// recorded in the frame so mixed snapshots read back fine.
func WithCompression(t compress.Type) Option {
	return options.New(func(c *config) error {
		if !t.Valid() {
			return errs.ErrInvalidEncoding
		}
		c.compression = t

		return nil
	})
}

// Write frames c into w.
func Write(w io.Writer, c chunk.Chunk, opts ...Option) error {
	cfg := &config{compression: compress.TypeNone}
	if err := options.Apply(cfg, opts...); err != nil {
		return err
	}

	codec, err := compress.GetCodec(cfg.compression)
	if err != nil {
		return err
	}

	sink := chunk.NewBufferSink(endian.GetLittleEndianEngine())
	c.Serialize(sink)

	payload, err := codec.Compress(sink.Bytes())
	if err != nil {
		return err
	}

	frame := pool.GetFrameBuffer()
	defer pool.PutFrameBuffer(frame)

	frame.B = binary.LittleEndian.AppendUint32(frame.B, magicNumber)
	frame.B = append(frame.B, formatV1, byte(c.Encoding()), byte(cfg.compression))
	frame.B = binary.LittleEndian.AppendUint64(frame.B, uint64(len(payload)))
	frame.B = append(frame.B, payload...)
	frame.B = binary.LittleEndian.AppendUint64(frame.B, xxhash.Sum64(payload))

	_, err = frame.WriteTo(w)

	return err
}

// Read parses one frame from r and rebuilds the chunk it carries.
func Read(r io.Reader) (chunk.Chunk, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errs.ErrDecode
	}

	if binary.LittleEndian.Uint32(header[0:4]) != magicNumber {
		return nil, errs.ErrInvalidMagicNumber
	}
	if header[4] != formatV1 {
		return nil, errs.ErrInvalidVersion
	}

	encoding := chunk.Encoding(header[5])
	if !encoding.Valid() {
		return nil, errs.ErrInvalidEncoding
	}

	compression := compress.Type(header[6])
	codec, err := compress.GetCodec(compression)
	if err != nil {
		return nil, errs.ErrDecode
	}

	payloadLen := binary.LittleEndian.Uint64(header[7:15])
	if payloadLen > maxPayloadSize {
		return nil, errs.ErrDecode
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errs.ErrDecode
	}

	var digest [digestSize]byte
	if _, err := io.ReadFull(r, digest[:]); err != nil {
		return nil, errs.ErrDecode
	}
	if binary.LittleEndian.Uint64(digest[:]) != xxhash.Sum64(payload) {
		return nil, errs.ErrChecksumMismatch
	}

	wire, err := codec.Decompress(payload)
	if err != nil {
		return nil, errs.ErrDecode
	}

	src := chunk.NewBufferSource(wire, endian.GetLittleEndianEngine())

	return chunk.Deserialize(encoding, src)
}
