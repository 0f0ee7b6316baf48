package block

import (
	"bytes"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	f := New(nil)
	f.Ref()
	t.Cleanup(f.Unref)
	return f
}

func pattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 251)
	}
	return p
}

func TestFileRoundTrip(t *testing.T) {
	t.Run("SingleAppend", func(t *testing.T) {
		f := newTestFile(t)
		data := pattern(3 * BlockSize)

		require.NoError(t, f.Append(data))
		require.Equal(t, uint64(len(data)), f.Size())

		got, err := f.Read(0, len(data), nil)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(data, got))
	})

	t.Run("ByteAtATime", func(t *testing.T) {
		f := newTestFile(t)
		data := pattern(10000)

		for i := range data {
			require.NoError(t, f.Append(data[i:i+1]))
		}
		require.Equal(t, uint64(len(data)), f.Size())

		// Spans the block boundary at 8192.
		got, err := f.Read(8190, 12, nil)
		require.NoError(t, err)
		assert.Equal(t, data[8190:8202], got)
	})

	t.Run("ChunkedAppendsArbitraryReads", func(t *testing.T) {
		f := newTestFile(t)
		data := pattern(30000)

		for off := 0; off < len(data); off += 1234 {
			end := off + 1234
			if end > len(data) {
				end = len(data)
			}
			require.NoError(t, f.Append(data[off:end]))
		}

		for _, tc := range []struct {
			name string
			off  uint64
			n    int
		}{
			{name: "WithinFirstBlock", off: 100, n: 50},
			{name: "ExactBlock", off: BlockSize, n: BlockSize},
			{name: "StraddleTwoBlocks", off: BlockSize - 1, n: 2},
			{name: "StraddleThreeBlocks", off: BlockSize / 2, n: 2 * BlockSize},
			{name: "Whole", off: 0, n: len(data)},
		} {
			t.Run(tc.name, func(t *testing.T) {
				got, err := f.Read(tc.off, tc.n, nil)
				require.NoError(t, err)
				assert.Equal(t, data[tc.off:int(tc.off)+tc.n], got)
			})
		}
	})
}

func TestFileReadClamping(t *testing.T) {
	f := newTestFile(t)
	data := pattern(100)
	require.NoError(t, f.Append(data))

	t.Run("ShortReadAtEOF", func(t *testing.T) {
		got, err := f.Read(90, 1000, nil)
		require.NoError(t, err)
		assert.Equal(t, data[90:], got)
	})

	t.Run("EmptyAtExactSize", func(t *testing.T) {
		got, err := f.Read(100, 10, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("OffsetBeyondSize", func(t *testing.T) {
		_, err := f.Read(101, 1, nil)
		require.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		empty := newTestFile(t)

		got, err := empty.Read(0, 10, nil)
		require.NoError(t, err)
		assert.Empty(t, got)

		_, err = empty.Read(1, 1, nil)
		require.ErrorIs(t, err, ErrOutOfRange)
	})
}

func TestFileReadScratch(t *testing.T) {
	f := newTestFile(t)
	data := pattern(2 * BlockSize)
	require.NoError(t, f.Append(data))

	t.Run("GrowsSmallScratch", func(t *testing.T) {
		got, err := f.Read(0, len(data), make([]byte, 0, 16))
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("ReusesLargeScratch", func(t *testing.T) {
		scratch := make([]byte, 3*BlockSize)
		got, err := f.Read(1, BlockSize, scratch)
		require.NoError(t, err)
		assert.Equal(t, data[1:1+BlockSize], got)
		assert.Same(t, &scratch[0], &got[0], "straddling read should fill caller scratch")
	})

	t.Run("SingleBlockReadAliasesStorage", func(t *testing.T) {
		scratch := make([]byte, BlockSize)
		got, err := f.Read(10, 100, scratch)
		require.NoError(t, err)
		assert.Equal(t, data[10:110], got)
		assert.NotSame(t, &scratch[0], &got[0], "in-block read should not copy")
	})
}

func TestFilePreAllocate(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, f.Append(pattern(100)))
	require.NoError(t, f.PreAllocate(3 * BlockSize))

	// Logical size is unchanged by the reservation.
	require.Equal(t, uint64(100), f.Size())

	_, err := f.Read(101, 1, nil)
	require.ErrorIs(t, err, ErrOutOfRange, "reserved bytes are not readable")

	// Appends fill the reserved blocks and stay readable.
	data := pattern(2 * BlockSize)
	require.NoError(t, f.Append(data))
	require.Equal(t, uint64(100+len(data)), f.Size())

	got, err := f.Read(100, len(data), nil)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFileRefCounting(t *testing.T) {
	t.Run("GaugeTracksBlocks", func(t *testing.T) {
		var gauge atomic.Int64

		f := New(&gauge)
		f.Ref()
		require.Zero(t, gauge.Load())

		require.NoError(t, f.Append(pattern(1)))
		assert.Equal(t, int64(BlockSize), gauge.Load())

		require.NoError(t, f.Append(pattern(BlockSize)))
		assert.Equal(t, int64(2*BlockSize), gauge.Load())

		f.Ref()
		f.Unref()
		assert.Equal(t, int64(2*BlockSize), gauge.Load(), "live reference keeps blocks")

		f.Unref()
		assert.Zero(t, gauge.Load(), "final release frees blocks")
	})

	t.Run("PanicsOnNegative", func(t *testing.T) {
		f := New(nil)
		f.Ref()
		f.Unref()
		assert.Panics(t, func() { f.Unref() })
	})
}
