package memenv

import (
	"fmt"

	"github.com/hupe1980/memenv/internal/block"
)

// sequentialFile is the cursor-based read view over a block file. It holds
// one reference, released on Close.
type sequentialFile struct {
	file   *block.File
	pos    uint64
	closed bool
}

func (s *sequentialFile) Read(n int, scratch []byte) ([]byte, error) {
	b, err := s.file.Read(s.pos, n, scratch)
	if err != nil {
		return nil, err
	}
	s.pos += uint64(len(b))
	return b, nil
}

func (s *sequentialFile) Skip(n uint64) error {
	size := s.file.Size()
	if s.pos > size {
		return fmt.Errorf("cursor %d beyond size %d: %w", s.pos, size, ErrInvalidState)
	}
	if available := size - s.pos; n > available {
		n = available
	}
	s.pos += n
	return nil
}

func (s *sequentialFile) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.file.Unref()
	return nil
}

// randomAccessFile is the stateless positional read view. It holds one
// reference, released on Close.
type randomAccessFile struct {
	file   *block.File
	closed bool
}

func (r *randomAccessFile) Read(off uint64, n int, scratch []byte) ([]byte, error) {
	return r.file.Read(off, n, scratch)
}

func (r *randomAccessFile) Size() (uint64, error) {
	return r.file.Size(), nil
}

func (r *randomAccessFile) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.file.Unref()
	return nil
}

// writableFile is the append-only write view. It holds one reference,
// released on Close. All size and position tracking lives in the block file.
type writableFile struct {
	file   *block.File
	closed bool
}

func (w *writableFile) Append(p []byte) error {
	return w.file.Append(p)
}

// AppendChunks serially appends every chunk. Not atomic: a failure leaves a
// prefix of the chunks written.
func (w *writableFile) AppendChunks(chunks ...[]byte) error {
	for _, chunk := range chunks {
		if err := w.file.Append(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (w *writableFile) PreAllocate(n uint64) error {
	return w.file.PreAllocate(n)
}

func (w *writableFile) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.file.Unref()
	return nil
}

// Flush is a no-op: memory-resident bytes need no flushing.
func (w *writableFile) Flush() error { return nil }

// Sync is a no-op: there is no durability to guarantee.
func (w *writableFile) Sync() error { return nil }

func (w *writableFile) Size() uint64 {
	return w.file.Size()
}
