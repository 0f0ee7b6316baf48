package testutil

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memenv"
)

func TestFaultyEnv(t *testing.T) {
	t.Run("PassthroughByDefault", func(t *testing.T) {
		fenv := NewFaultyEnv(memenv.New())

		w, err := fenv.NewWritableFile("/f")
		require.NoError(t, err)
		require.NoError(t, w.Append([]byte("payload")))
		require.NoError(t, w.Sync())
		require.NoError(t, w.Close())

		size, err := fenv.GetFileSize("/f")
		require.NoError(t, err)
		assert.Equal(t, uint64(7), size)
	})

	t.Run("FailAfterBytes", func(t *testing.T) {
		fenv := NewFaultyEnv(memenv.New())
		fenv.AddRule("MANIFEST", Fault{FailAfterBytes: 10})

		w, err := fenv.NewWritableFile("/db/MANIFEST-000001")
		require.NoError(t, err)
		defer w.Close()

		require.NoError(t, w.Append([]byte("123456")))

		err = w.Append([]byte("too much"))
		require.ErrorIs(t, err, fenv.Err)

		// The file holds only the bytes written before the fault.
		size, err := fenv.GetFileSize("/db/MANIFEST-000001")
		require.NoError(t, err)
		assert.Equal(t, uint64(6), size)

		// Unmatched names are unaffected.
		other, err := fenv.NewWritableFile("/db/000002.log")
		require.NoError(t, err)
		defer other.Close()
		require.NoError(t, other.Append(bytes.Repeat([]byte{'x'}, 100)))
	})

	t.Run("FailAfterBytesViaChunks", func(t *testing.T) {
		fenv := NewFaultyEnv(memenv.New())
		fenv.AddRule("/f", Fault{FailAfterBytes: 5})

		w, err := fenv.NewWritableFile("/f")
		require.NoError(t, err)
		defer w.Close()

		// Partial failure leaves a prefix written.
		err = w.AppendChunks([]byte("abc"), []byte("defg"))
		require.ErrorIs(t, err, fenv.Err)

		size, err := fenv.GetFileSize("/f")
		require.NoError(t, err)
		assert.Equal(t, uint64(3), size)
	})

	t.Run("FailOnSyncAndClose", func(t *testing.T) {
		injected := errors.New("boom")

		fenv := NewFaultyEnv(memenv.New())
		fenv.AddRule("/f", Fault{FailAfterBytes: -1, FailOnSync: true, FailOnClose: true, Err: injected})

		w, err := fenv.NewWritableFile("/f")
		require.NoError(t, err)

		require.NoError(t, w.Append([]byte("ok")))
		require.ErrorIs(t, w.Sync(), injected)
		require.ErrorIs(t, w.Close(), injected)
	})
}

func TestThrottledEnv(t *testing.T) {
	t.Run("PreservesBytes", func(t *testing.T) {
		tenv := NewThrottledEnv(memenv.New(), 1<<30)

		w, err := tenv.NewWritableFile("/f")
		require.NoError(t, err)
		require.NoError(t, w.AppendChunks([]byte("hello "), []byte("world")))
		require.NoError(t, w.Close())

		r, err := tenv.NewRandomAccessFile("/f")
		require.NoError(t, err)
		defer r.Close()

		b, err := r.Read(0, 11, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello world"), b)

		s, err := tenv.NewSequentialFile("/f")
		require.NoError(t, err)
		defer s.Close()

		b, err = s.Read(5, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), b)
	})

	t.Run("LimitsThroughput", func(t *testing.T) {
		// 1 KiB/s budget; the initial burst covers the first KiB, so a
		// second KiB has to wait.
		tenv := NewThrottledEnv(memenv.New(), 1024)

		w, err := tenv.NewWritableFile("/slow")
		require.NoError(t, err)
		defer w.Close()

		start := time.Now()
		require.NoError(t, w.Append(make([]byte, 1536)))
		assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
	})
}

func TestScratchDir(t *testing.T) {
	env := memenv.New()

	var dir string

	t.Run("Lifecycle", func(t *testing.T) {
		dir = ScratchDir(t, env)
		assert.Contains(t, dir, "/test/")
		assert.Contains(t, dir, "TestScratchDir_Lifecycle")

		w, err := env.NewWritableFile(dir + "/data.bin")
		require.NoError(t, err)
		require.NoError(t, w.Append([]byte("scratch")))
		require.NoError(t, w.Close())

		assert.True(t, env.FileExists(dir+"/data.bin"))
	})

	// The subtest's cleanup has run by now.
	assert.False(t, env.FileExists(dir+"/data.bin"))
}
