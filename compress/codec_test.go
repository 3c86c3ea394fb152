package compress

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testPayload() []byte {
	// Repetitive delta-style bytes, compressible like a real chunk payload.
	rng := rand.New(rand.NewSource(7))
	payload := make([]byte, 8192)
	for i := 0; i < len(payload); i += 16 {
		payload[i] = byte(rng.Intn(4))
	}

	return payload
}

func TestCodecRoundTrip(t *testing.T) {
	payload := testPayload()

	for _, typ := range []Type{TypeNone, TypeZstd, TypeS2, TypeLZ4} {
		t.Run(typ.String(), func(t *testing.T) {
			codec, err := GetCodec(typ)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.True(t, bytes.Equal(payload, decompressed))
		})
	}
}

func TestCompressiblePayloadShrinks(t *testing.T) {
	payload := testPayload()

	for _, typ := range []Type{TypeZstd, TypeS2, TypeLZ4} {
		codec, err := GetCodec(typ)
		require.NoError(t, err)

		compressed, err := codec.Compress(payload)
		require.NoError(t, err)
		require.Less(t, len(compressed), len(payload), "%s should shrink a repetitive payload", typ)
	}
}

func TestEmptyPayload(t *testing.T) {
	for _, typ := range []Type{TypeNone, TypeZstd, TypeS2, TypeLZ4} {
		codec, err := GetCodec(typ)
		require.NoError(t, err)

		compressed, err := codec.Compress(nil)
		require.NoError(t, err)

		decompressed, err := codec.Decompress(compressed)
		require.NoError(t, err)
		require.Empty(t, decompressed)
	}
}

func TestGetCodecUnknown(t *testing.T) {
	_, err := GetCodec(Type(0xFF))
	require.Error(t, err)
}

func TestTypeStrings(t *testing.T) {
	require.Equal(t, "None", TypeNone.String())
	require.Equal(t, "Zstd", TypeZstd.String())
	require.Equal(t, "S2", TypeS2.String())
	require.Equal(t, "LZ4", TypeLZ4.String())
	require.Equal(t, "Unknown", Type(0).String())

	require.True(t, TypeLZ4.Valid())
	require.False(t, Type(0).Valid())
}
