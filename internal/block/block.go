// Package block implements the block-based byte container backing in-memory
// files.
//
// A File stores its content as an ordered sequence of fixed-size blocks and
// supports byte-range reads and append-only writes. Files are reference
// counted: the directory table and every open handle each hold one reference,
// and the block storage is freed exactly once when the last reference is
// released. This is what keeps a file readable through handles that were
// opened before the file was deleted or renamed away.
package block

import (
	"errors"
	"sync/atomic"
)

// BlockSize is the fixed size of every content block.
const BlockSize = 8 * 1024

// ErrOutOfRange is returned by Read when the offset exceeds the file size.
var ErrOutOfRange = errors.New("offset out of range")

// File is an append-only, reference-counted byte container.
//
// The reference count and the resident-bytes gauge are safe for concurrent
// use. Content is not: callers must not Append or PreAllocate concurrently
// with any other access to the same File. This matches the single-writer
// contract of the environment's writable handles.
//
// A File must not be copied.
type File struct {
	refs atomic.Int32

	// gauge, when non-nil, tracks resident block bytes across the whole
	// environment. Charged on block allocation, credited on free.
	gauge *atomic.Int64

	blocks [][]byte
	size   uint64
}

// New creates an empty File. The initial reference count is zero; the caller
// must Ref at least once before handing the File out.
func New(gauge *atomic.Int64) *File {
	return &File{gauge: gauge}
}

// Ref increments the reference count.
func (f *File) Ref() {
	f.refs.Add(1)
}

// Unref decrements the reference count and frees the block storage when the
// count reaches zero. No method may be called after the final Unref.
func (f *File) Unref() {
	switch v := f.refs.Add(-1); {
	case v < 0:
		panic("block: negative refcount")
	case v == 0:
		if f.gauge != nil {
			f.gauge.Add(-int64(len(f.blocks)) * BlockSize)
		}
		f.blocks = nil
	}
}

// Size returns the logical byte length written so far.
func (f *File) Size() uint64 {
	return f.size
}

// Read returns n bytes starting at off. It fails with ErrOutOfRange if off
// exceeds the file size, and clamps n to the bytes remaining, so short reads
// at end-of-file are not errors.
//
// When the requested range lies within a single block the returned slice
// aliases the block (no copy) and stays valid until the final Unref. Reads
// that straddle block boundaries are stitched into scratch, which is grown
// if too small.
func (f *File) Read(off uint64, n int, scratch []byte) ([]byte, error) {
	if off > f.size {
		return nil, ErrOutOfRange
	}
	if avail := f.size - off; uint64(n) > avail {
		n = int(avail)
	}
	if n == 0 {
		return nil, nil
	}

	idx := off / BlockSize
	blockOff := off % BlockSize

	if uint64(n) <= BlockSize-blockOff {
		return f.blocks[idx][blockOff : blockOff+uint64(n)], nil
	}

	if cap(scratch) < n {
		scratch = make([]byte, n)
	}
	dst := scratch[:n]

	remaining := n
	for remaining > 0 {
		avail := BlockSize - blockOff
		if avail > uint64(remaining) {
			avail = uint64(remaining)
		}
		copy(dst[n-remaining:], f.blocks[idx][blockOff:blockOff+avail])
		remaining -= int(avail)
		idx++
		blockOff = 0
	}

	return dst, nil
}

// Append writes p after the current content, filling the tail block's free
// space and allocating blocks as needed. Size grows monotonically; existing
// bytes are never rewritten.
func (f *File) Append(p []byte) error {
	for len(p) > 0 {
		idx := f.size / BlockSize
		if idx == uint64(len(f.blocks)) {
			f.allocBlock()
		}
		n := copy(f.blocks[idx][f.size%BlockSize:], p)
		p = p[n:]
		f.size += uint64(n)
	}
	return nil
}

// PreAllocate reserves block capacity for n more bytes without changing the
// logical size. Subsequent Appends fill the reserved blocks before
// allocating new ones.
func (f *File) PreAllocate(n uint64) error {
	needed := (f.size + n + BlockSize - 1) / BlockSize
	for uint64(len(f.blocks)) < needed {
		f.allocBlock()
	}
	return nil
}

func (f *File) allocBlock() {
	f.blocks = append(f.blocks, make([]byte, BlockSize))
	if f.gauge != nil {
		f.gauge.Add(BlockSize)
	}
}
