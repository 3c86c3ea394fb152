package compress

import "fmt"

// Type identifies a snapshot payload compression algorithm on the wire.
type Type uint8

const (
	TypeNone Type = 0x1 // no compression
	TypeZstd Type = 0x2 // Zstandard
	TypeS2   Type = 0x3 // S2 (Snappy-compatible)
	TypeLZ4  Type = 0x4 // LZ4 block format
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "None"
	case TypeZstd:
		return "Zstd"
	case TypeS2:
		return "S2"
	case TypeLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Valid reports whether t names a known codec.
func (t Type) Valid() bool {
	return t >= TypeNone && t <= TypeLZ4
}

// Compressor compresses a complete snapshot payload in one call.
//
// Memory management:
//   - The returned slice is owned by the caller.
//   - The input slice is not modified.
//   - Internal buffers may be reused across calls.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor of the same Type. Implementations
// validate the input and return an error for corrupted or mismatched data.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions of one algorithm.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[Type]Codec{
	TypeNone: NewNoOpCompressor(),
	TypeZstd: NewZstdCompressor(),
	TypeS2:   NewS2Compressor(),
	TypeLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves the built-in Codec for the given type.
func GetCodec(t Type) (Codec, error) {
	if codec, ok := builtinCodecs[t]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", t)
}
