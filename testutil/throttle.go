package testutil

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/hupe1980/memenv"
)

// ThrottledEnv is an Env wrapper that caps byte throughput through open
// handles, emulating slow media in tests. File-management operations pass
// through unthrottled.
type ThrottledEnv struct {
	memenv.Env

	limiter *rate.Limiter
}

// NewThrottledEnv creates a ThrottledEnv that limits combined read and
// append throughput to bytesPerSec.
func NewThrottledEnv(env memenv.Env, bytesPerSec int64) *ThrottledEnv {
	return &ThrottledEnv{
		Env:     env,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec)),
	}
}

// wait blocks until n bytes of budget are available. Requests larger than
// the burst are consumed in burst-sized installments.
func (t *ThrottledEnv) wait(n int) {
	for n > 0 {
		chunk := n
		if burst := t.limiter.Burst(); chunk > burst {
			chunk = burst
		}
		_ = t.limiter.WaitN(context.Background(), chunk)
		n -= chunk
	}
}

func (t *ThrottledEnv) NewSequentialFile(name string) (memenv.SequentialFile, error) {
	f, err := t.Env.NewSequentialFile(name)
	if err != nil {
		return nil, err
	}
	return &throttledSequentialFile{SequentialFile: f, env: t}, nil
}

func (t *ThrottledEnv) NewRandomAccessFile(name string) (memenv.RandomAccessFile, error) {
	f, err := t.Env.NewRandomAccessFile(name)
	if err != nil {
		return nil, err
	}
	return &throttledRandomAccessFile{RandomAccessFile: f, env: t}, nil
}

func (t *ThrottledEnv) NewWritableFile(name string, optFns ...func(o *memenv.WritableFileOptions)) (memenv.WritableFile, error) {
	w, err := t.Env.NewWritableFile(name, optFns...)
	if err != nil {
		return nil, err
	}
	return &throttledWritableFile{WritableFile: w, env: t}, nil
}

type throttledSequentialFile struct {
	memenv.SequentialFile
	env *ThrottledEnv
}

func (f *throttledSequentialFile) Read(n int, scratch []byte) ([]byte, error) {
	b, err := f.SequentialFile.Read(n, scratch)
	if err != nil {
		return nil, err
	}
	f.env.wait(len(b))
	return b, nil
}

type throttledRandomAccessFile struct {
	memenv.RandomAccessFile
	env *ThrottledEnv
}

func (f *throttledRandomAccessFile) Read(off uint64, n int, scratch []byte) ([]byte, error) {
	b, err := f.RandomAccessFile.Read(off, n, scratch)
	if err != nil {
		return nil, err
	}
	f.env.wait(len(b))
	return b, nil
}

type throttledWritableFile struct {
	memenv.WritableFile
	env *ThrottledEnv
}

func (f *throttledWritableFile) Append(p []byte) error {
	f.env.wait(len(p))
	return f.WritableFile.Append(p)
}

func (f *throttledWritableFile) AppendChunks(chunks ...[]byte) error {
	for _, chunk := range chunks {
		if err := f.Append(chunk); err != nil {
			return err
		}
	}
	return nil
}
