package chunk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rloweth/gorch/errs"
)

func collectAll(t *testing.T, c Chunk) []Sample {
	t.Helper()

	out := NewEnrichedChunk(int(c.NumSamples()) + 1)
	c.ProcessRange(0, math.MaxUint64, out, false)

	samples := make([]Sample, out.NumSamples())
	for i := range samples {
		samples[i] = Sample{Timestamp: out.Timestamps[i], Value: out.Values[i]}
	}

	return samples
}

func TestUncompressedAppendAndRead(t *testing.T) {
	c := NewUncompressedChunk(64)

	want := []Sample{
		{Timestamp: 1000, Value: 1.0},
		{Timestamp: 1001, Value: 1.5},
		{Timestamp: 1002, Value: 2.0},
		{Timestamp: 1003, Value: 2.5},
	}
	for _, s := range want {
		require.NoError(t, c.Append(s))
	}

	require.Equal(t, uint64(4), c.NumSamples())
	require.Equal(t, uint64(1000), c.FirstTimestamp())
	require.Equal(t, uint64(1003), c.LastTimestamp())
	require.Equal(t, 2.5, c.LastValue())

	require.Equal(t, want, collectAll(t, c))
}

func TestUncompressedAppendFull(t *testing.T) {
	c := NewUncompressedChunk(2 * SampleSize)

	require.NoError(t, c.Append(Sample{Timestamp: 1, Value: 1}))
	require.NoError(t, c.Append(Sample{Timestamp: 2, Value: 2}))
	require.ErrorIs(t, c.Append(Sample{Timestamp: 3, Value: 3}), errs.ErrChunkFull)
	require.Equal(t, uint64(2), c.NumSamples())
}

func TestUncompressedEmptyReads(t *testing.T) {
	c := NewUncompressedChunk(64)

	require.Equal(t, uint64(0), c.NumSamples())
	require.Equal(t, uint64(0), c.FirstTimestamp())
	require.Equal(t, uint64(0), c.LastTimestamp())
	require.Equal(t, 0.0, c.LastValue())
}

func TestUncompressedUpsertAtHead(t *testing.T) {
	c := NewUncompressedChunk(64)
	require.NoError(t, c.Append(Sample{Timestamp: 200, Value: 2}))
	require.NoError(t, c.Append(Sample{Timestamp: 300, Value: 3}))

	delta, err := c.Upsert(Sample{Timestamp: 100, Value: 1}, DuplicateBlock)
	require.NoError(t, err)
	require.Equal(t, 1, delta)
	require.Equal(t, uint64(100), c.FirstTimestamp())

	require.Equal(t, []Sample{
		{Timestamp: 100, Value: 1},
		{Timestamp: 200, Value: 2},
		{Timestamp: 300, Value: 3},
	}, collectAll(t, c))
}

func TestUncompressedUpsertDuplicate(t *testing.T) {
	tests := []struct {
		name    string
		policy  DuplicatePolicy
		want    float64
		wantErr bool
	}{
		{name: "block rejects", policy: DuplicateBlock, wantErr: true},
		{name: "first keeps incumbent", policy: DuplicateFirst, want: 1.0},
		{name: "last replaces", policy: DuplicateLast, want: 9.0},
		{name: "min keeps smaller", policy: DuplicateMin, want: 1.0},
		{name: "max keeps larger", policy: DuplicateMax, want: 9.0},
		{name: "sum adds", policy: DuplicateSum, want: 10.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewUncompressedChunk(64)
			require.NoError(t, c.Append(Sample{Timestamp: 500, Value: 1.0}))

			delta, err := c.Upsert(Sample{Timestamp: 500, Value: 9.0}, tt.policy)
			if tt.wantErr {
				require.ErrorIs(t, err, errs.ErrDuplicateRejected)
				require.Equal(t, 1.0, c.LastValue())
				return
			}

			require.NoError(t, err)
			require.Equal(t, 0, delta)
			require.Equal(t, uint64(1), c.NumSamples())
			require.Equal(t, tt.want, c.LastValue())
		})
	}
}

func TestUncompressedUpsertGrowsFullChunk(t *testing.T) {
	c := NewUncompressedChunk(2 * SampleSize)
	require.NoError(t, c.Append(Sample{Timestamp: 10, Value: 1}))
	require.NoError(t, c.Append(Sample{Timestamp: 30, Value: 3}))
	require.Equal(t, uint64(2*SampleSize), c.Size(false))

	delta, err := c.Upsert(Sample{Timestamp: 20, Value: 2}, DuplicateBlock)
	require.NoError(t, err)
	require.Equal(t, 1, delta)
	require.Equal(t, uint64(3*SampleSize), c.Size(false))

	require.Equal(t, []Sample{
		{Timestamp: 10, Value: 1},
		{Timestamp: 20, Value: 2},
		{Timestamp: 30, Value: 3},
	}, collectAll(t, c))
}

func TestUncompressedDelRangeMiddle(t *testing.T) {
	c := NewUncompressedChunk(128)
	for _, ts := range []uint64{10, 20, 30, 40, 50} {
		require.NoError(t, c.Append(Sample{Timestamp: ts, Value: float64(ts)}))
	}

	deleted := c.DelRange(20, 40)
	require.Equal(t, uint64(3), deleted)
	require.Equal(t, uint64(10), c.FirstTimestamp())
	require.Equal(t, []Sample{
		{Timestamp: 10, Value: 10},
		{Timestamp: 50, Value: 50},
	}, collectAll(t, c))
}

func TestUncompressedDelRangeAll(t *testing.T) {
	c := NewUncompressedChunk(64)
	require.NoError(t, c.Append(Sample{Timestamp: 5, Value: 1}))
	require.NoError(t, c.Append(Sample{Timestamp: 6, Value: 2}))

	deleted := c.DelRange(0, math.MaxUint64)
	require.Equal(t, uint64(2), deleted)
	require.Equal(t, uint64(0), c.NumSamples())
	require.Equal(t, uint64(0), c.FirstTimestamp())
}

func TestUncompressedDelRangeBoundsInclusive(t *testing.T) {
	c := NewUncompressedChunk(128)
	for _, ts := range []uint64{10, 20, 30} {
		require.NoError(t, c.Append(Sample{Timestamp: ts, Value: float64(ts)}))
	}

	require.Equal(t, uint64(1), c.DelRange(20, 20))
	require.Equal(t, []Sample{
		{Timestamp: 10, Value: 10},
		{Timestamp: 30, Value: 30},
	}, collectAll(t, c))
}

func TestUncompressedSplit(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8} {
		c := NewUncompressedChunk(uint64(n) * SampleSize)
		var want []Sample
		for i := 0; i < n; i++ {
			s := Sample{Timestamp: uint64(100 + i), Value: float64(i)}
			want = append(want, s)
			require.NoError(t, c.Append(s))
		}

		next := c.Split()

		keep := uint64(n) - uint64(n)/2
		require.Equal(t, keep, c.NumSamples())
		require.Equal(t, uint64(n)/2, next.NumSamples())
		require.Equal(t, keep*SampleSize, c.Size(false))

		got := append(collectAll(t, c), collectAll(t, next)...)
		require.Equal(t, want, got, "split of %d samples", n)
	}
}

func TestUncompressedClone(t *testing.T) {
	c := NewUncompressedChunk(64)
	require.NoError(t, c.Append(Sample{Timestamp: 1, Value: 1}))
	require.NoError(t, c.Append(Sample{Timestamp: 2, Value: 2}))

	dup := c.Clone()
	_, err := dup.Upsert(Sample{Timestamp: 3, Value: 3}, DuplicateBlock)
	require.NoError(t, err)

	require.Equal(t, uint64(2), c.NumSamples())
	require.Equal(t, uint64(3), dup.NumSamples())
	require.Equal(t, uint64(2), c.LastTimestamp())
}

func TestUncompressedRelocate(t *testing.T) {
	c := NewUncompressedChunk(64)
	require.NoError(t, c.Append(Sample{Timestamp: 1, Value: 1}))
	require.NoError(t, c.Append(Sample{Timestamp: 2, Value: 2}))

	moved := make([]Sample, 2)
	copy(moved, collectAll(t, c))

	old := c.Relocate(moved)
	require.Len(t, old, 2)
	require.Equal(t, []Sample{{Timestamp: 1, Value: 1}, {Timestamp: 2, Value: 2}}, collectAll(t, c))

	require.Panics(t, func() { c.Relocate(make([]Sample, 5)) })
}

func TestUncompressedProcessRange(t *testing.T) {
	c := NewUncompressedChunk(128)
	for _, ts := range []uint64{10, 20, 30, 40, 50} {
		require.NoError(t, c.Append(Sample{Timestamp: ts, Value: float64(ts) / 10}))
	}

	out := NewEnrichedChunk(8)

	t.Run("forward subrange", func(t *testing.T) {
		c.ProcessRange(15, 45, out, false)
		require.False(t, out.Reversed)
		require.Equal(t, []uint64{20, 30, 40}, out.Timestamps)
		require.Equal(t, []float64{2, 3, 4}, out.Values)
	})

	t.Run("reverse subrange", func(t *testing.T) {
		c.ProcessRange(15, 45, out, true)
		require.True(t, out.Reversed)
		require.Equal(t, []uint64{40, 30, 20}, out.Timestamps)
		require.Equal(t, []float64{4, 3, 2}, out.Values)
	})

	t.Run("empty intersection between samples", func(t *testing.T) {
		c.ProcessRange(21, 29, out, false)
		require.Equal(t, 0, out.NumSamples())
	})

	t.Run("inverted range", func(t *testing.T) {
		c.ProcessRange(40, 20, out, false)
		require.Equal(t, 0, out.NumSamples())
	})

	t.Run("range below chunk", func(t *testing.T) {
		c.ProcessRange(0, 5, out, false)
		require.Equal(t, 0, out.NumSamples())
	})

	t.Run("range above chunk", func(t *testing.T) {
		c.ProcessRange(60, 100, out, false)
		require.Equal(t, 0, out.NumSamples())
	})
}

func TestUncompressedSerializeRoundTrip(t *testing.T) {
	build := func(mutate func(c *UncompressedChunk)) *UncompressedChunk {
		c := NewUncompressedChunk(64)
		mutate(c)
		return c
	}

	tests := []struct {
		name  string
		chunk *UncompressedChunk
	}{
		{name: "empty", chunk: build(func(*UncompressedChunk) {})},
		{name: "single sample", chunk: build(func(c *UncompressedChunk) {
			require.NoError(t, c.Append(Sample{Timestamp: 42, Value: 4.2}))
		})},
		{name: "full", chunk: build(func(c *UncompressedChunk) {
			for i := uint64(0); i < 4; i++ {
				require.NoError(t, c.Append(Sample{Timestamp: 100 + i, Value: float64(i)}))
			}
		})},
		{name: "post delete", chunk: build(func(c *UncompressedChunk) {
			for i := uint64(0); i < 4; i++ {
				require.NoError(t, c.Append(Sample{Timestamp: 100 + i, Value: float64(i)}))
			}
			c.DelRange(101, 102)
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := NewBufferSink(nil)
			tt.chunk.Serialize(sink)

			got, err := DeserializeUncompressedChunk(NewBufferSource(sink.Bytes(), nil))
			require.NoError(t, err)

			require.Equal(t, tt.chunk.NumSamples(), got.NumSamples())
			require.Equal(t, tt.chunk.FirstTimestamp(), got.FirstTimestamp())
			require.Equal(t, tt.chunk.Size(false), got.Size(false))
			require.Equal(t, collectAll(t, tt.chunk), collectAll(t, got))

			// Reserializing must reproduce the stream byte for byte.
			sink2 := NewBufferSink(nil)
			got.Serialize(sink2)
			require.Equal(t, sink.Bytes(), sink2.Bytes())
		})
	}
}

func TestUncompressedDeserializeErrors(t *testing.T) {
	c := NewUncompressedChunk(64)
	require.NoError(t, c.Append(Sample{Timestamp: 1, Value: 1}))

	sink := NewBufferSink(nil)
	c.Serialize(sink)
	wire := sink.Bytes()

	t.Run("truncated stream", func(t *testing.T) {
		for _, cut := range []int{0, 7, 8, 23, len(wire) - 1} {
			_, err := DeserializeUncompressedChunk(NewBufferSource(wire[:cut], nil))
			require.ErrorIs(t, err, errs.ErrDecode, "cut at %d", cut)
		}
	})

	t.Run("sample count beyond buffer", func(t *testing.T) {
		corrupt := append([]byte(nil), wire...)
		// num_samples is the second u64 field.
		for i := 8; i < 16; i++ {
			corrupt[i] = 0xFF
		}
		_, err := DeserializeUncompressedChunk(NewBufferSource(corrupt, nil))
		require.ErrorIs(t, err, errs.ErrDecode)
	})
}
