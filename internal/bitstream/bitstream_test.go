package bitstream

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadSingleBits(t *testing.T) {
	buf := make([]byte, 8)
	w := NewWriter(buf, 0)

	bits := []bool{true, false, true, true, false, false, true, false, true}
	for _, b := range bits {
		w.WriteBit(b)
	}
	require.Equal(t, uint64(len(bits)), w.Index())

	r := NewReader(buf)
	for i, want := range bits {
		require.Equal(t, want, r.ReadBit(), "bit %d", i)
	}
}

func TestWriteBitsMSBFirst(t *testing.T) {
	buf := make([]byte, 8)
	w := NewWriter(buf, 0)

	// 0b101 in 3 bits lands in the top three bits of the first byte.
	w.WriteBits(0b101, 3)
	require.Equal(t, byte(0b1010_0000), buf[0])
}

func TestWriteBitsAcrossWordBoundary(t *testing.T) {
	buf := make([]byte, 16)
	w := NewWriter(buf, 0)

	w.WriteBits(0, 60)
	w.WriteBits(0xFF, 8) // straddles the first and second words

	r := NewReader(buf)
	require.Equal(t, uint64(0), r.ReadBits(60))
	require.Equal(t, uint64(0xFF), r.ReadBits(8))
}

func TestWriteFullWord(t *testing.T) {
	buf := make([]byte, 16)
	w := NewWriter(buf, 0)

	w.WriteBits(0xDEADBEEFCAFEF00D, 64)
	w.WriteBits(0xFFFFFFFFFFFFFFFF, 64)

	r := NewReader(buf)
	require.Equal(t, uint64(0xDEADBEEFCAFEF00D), r.ReadBits(64))
	require.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), r.ReadBits(64))
}

func TestResumeAtCursor(t *testing.T) {
	buf := make([]byte, 8)
	w := NewWriter(buf, 0)
	w.WriteBits(0b11, 2)

	// A fresh writer resuming at the saved cursor continues the stream.
	w2 := NewWriter(buf, w.Index())
	w2.WriteBits(0b01, 2)

	r := NewReader(buf)
	require.Equal(t, uint64(0b1101), r.ReadBits(4))
}

func TestRemaining(t *testing.T) {
	buf := make([]byte, 8)
	w := NewWriter(buf, 0)
	require.Equal(t, uint64(64), w.Remaining())

	w.WriteBits(0x7, 3)
	require.Equal(t, uint64(61), w.Remaining())
}

func TestWritePastEndPanics(t *testing.T) {
	buf := make([]byte, 8)
	w := NewWriter(buf, 0)
	w.WriteBits(0, 60)

	require.Panics(t, func() { w.WriteBits(0, 5) })
}

func TestReadPastEndYieldsZero(t *testing.T) {
	buf := make([]byte, 8)
	w := NewWriter(buf, 0)
	w.WriteBits(0xFFFFFFFFFFFFFFFF, 64)

	r := NewReader(buf)
	require.Equal(t, uint64(0xFFFF), r.ReadBits(16))
	r.ReadBits(48)
	require.Equal(t, uint64(0), r.ReadBits(32))
}

func TestRandomRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	buf := make([]byte, 1024)
	w := NewWriter(buf, 0)

	type field struct {
		value uint64
		bits  int
	}

	var fields []field
	for w.Remaining() >= 64 {
		bits := 1 + rng.Intn(64)
		value := rng.Uint64()
		if bits < 64 {
			value &= (1 << bits) - 1
		}
		w.WriteBits(value, bits)
		fields = append(fields, field{value, bits})
	}

	r := NewReader(buf)
	for i, f := range fields {
		require.Equal(t, f.value, r.ReadBits(f.bits), "field %d (%d bits)", i, f.bits)
	}
}
