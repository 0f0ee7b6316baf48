package memenv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/memenv/internal/block"
)

// Snapshot stream layout (little endian):
//
//	uint32 magic   "MENV"
//	uint32 version
//	uint8  compression
//	uint64 payload length (as stored, possibly compressed)
//	       payload
//	uint32 CRC32-IEEE of the stored payload
//
// The payload holds a uint32 file count followed by one record per file:
// uint32 name length, name bytes, uint64 content length, content bytes.
// Records are written in lexicographic name order so identical environments
// produce identical snapshots.
const (
	// SnapshotMagic identifies memenv snapshot streams (ASCII: "MENV").
	SnapshotMagic = 0x4D454E56
	// SnapshotVersion is the current snapshot format version.
	SnapshotVersion = 0x00010000
)

var (
	// ErrInvalidMagic is returned when a restore source is not a snapshot.
	ErrInvalidMagic = errors.New("invalid snapshot magic")
	// ErrInvalidVersion is returned for snapshots from unknown versions.
	ErrInvalidVersion = errors.New("unsupported snapshot version")
	// ErrChecksumMismatch is returned when the payload fails verification.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
)

// CompressionType selects the snapshot payload compression.
type CompressionType uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone CompressionType = 0
	// CompressionLZ4 compresses the payload with LZ4 (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD compresses the payload with zstd (better ratio).
	CompressionZSTD CompressionType = 2
)

// SnapshotOptions configures Snapshot.
type SnapshotOptions struct {
	// Compression selects the payload codec. Defaults to CompressionNone.
	Compression CompressionType
}

// WithCompression sets the snapshot payload codec.
func WithCompression(c CompressionType) func(o *SnapshotOptions) {
	return func(o *SnapshotOptions) {
		o.Compression = c
	}
}

// Snapshot serializes every file in the environment to w.
//
// The table lock is held for the duration, so the snapshot is consistent
// with respect to create, delete and rename. Writers appending through open
// handles must be quiesced first, per the environment's single-writer
// contract.
func (e *InMemEnv) Snapshot(w io.Writer, optFns ...func(o *SnapshotOptions)) error {
	var opts SnapshotOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	e.mu.Lock()
	payload, err := e.encodePayloadLocked()
	e.mu.Unlock()
	if err != nil {
		return err
	}

	stored, err := compressPayload(payload, opts.Compression)
	if err != nil {
		return err
	}

	header := make([]byte, 17)
	binary.LittleEndian.PutUint32(header[0:], SnapshotMagic)
	binary.LittleEndian.PutUint32(header[4:], SnapshotVersion)
	header[8] = byte(opts.Compression)
	binary.LittleEndian.PutUint64(header[9:], uint64(len(stored)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	if _, err := w.Write(stored); err != nil {
		return fmt.Errorf("write snapshot payload: %w", err)
	}

	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], crc32.ChecksumIEEE(stored))
	if _, err := w.Write(trailer[:]); err != nil {
		return fmt.Errorf("write snapshot checksum: %w", err)
	}

	return nil
}

// Restore loads a snapshot produced by Snapshot into the environment. Each
// restored name is created with the usual create-truncates semantics;
// existing names not present in the snapshot are left untouched.
func (e *InMemEnv) Restore(r io.Reader) error {
	header := make([]byte, 17)
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("read snapshot header: %w", err)
	}

	if binary.LittleEndian.Uint32(header[0:]) != SnapshotMagic {
		return ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(header[4:]) != SnapshotVersion {
		return ErrInvalidVersion
	}
	compression := CompressionType(header[8])
	storedLen := binary.LittleEndian.Uint64(header[9:])

	stored := make([]byte, storedLen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return fmt.Errorf("read snapshot payload: %w", err)
	}

	var trailer [4]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return fmt.Errorf("read snapshot checksum: %w", err)
	}
	if binary.LittleEndian.Uint32(trailer[:]) != crc32.ChecksumIEEE(stored) {
		return ErrChecksumMismatch
	}

	payload, err := decompressPayload(stored, compression)
	if err != nil {
		return err
	}

	return e.decodePayload(payload)
}

// encodePayloadLocked serializes the table in lexicographic name order.
// Callers must hold e.mu.
func (e *InMemEnv) encodePayloadLocked() ([]byte, error) {
	names := make([]string, 0, len(e.files))
	for name := range e.files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer

	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(names)))
	buf.Write(count[:])

	for _, name := range names {
		f := e.files[name]

		var nameLen [4]byte
		binary.LittleEndian.PutUint32(nameLen[:], uint32(len(name)))
		buf.Write(nameLen[:])
		buf.WriteString(name)

		size := f.Size()
		var sizeBuf [8]byte
		binary.LittleEndian.PutUint64(sizeBuf[:], size)
		buf.Write(sizeBuf[:])

		content, err := f.Read(0, int(size), nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		buf.Write(content)
	}

	return buf.Bytes(), nil
}

func (e *InMemEnv) decodePayload(payload []byte) error {
	rd := bytes.NewReader(payload)

	var count uint32
	if err := binary.Read(rd, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("read file count: %w", err)
	}

	type record struct {
		name    string
		content []byte
	}

	records := make([]record, 0, count)
	for i := uint32(0); i < count; i++ {
		var nameLen uint32
		if err := binary.Read(rd, binary.LittleEndian, &nameLen); err != nil {
			return fmt.Errorf("read name length: %w", err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(rd, name); err != nil {
			return fmt.Errorf("read name: %w", err)
		}

		var size uint64
		if err := binary.Read(rd, binary.LittleEndian, &size); err != nil {
			return fmt.Errorf("%s: read size: %w", name, err)
		}
		content := make([]byte, size)
		if _, err := io.ReadFull(rd, content); err != nil {
			return fmt.Errorf("%s: read content: %w", name, err)
		}

		records = append(records, record{name: string(name), content: content})
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rec := range records {
		e.deleteLocked(rec.name)

		f := block.New(&e.resident)
		f.Ref()
		if err := f.Append(rec.content); err != nil {
			f.Unref()
			return fmt.Errorf("%s: %w", rec.name, err)
		}
		e.files[rec.name] = f
	}

	e.logger.Debug("restored snapshot", "files", len(records))
	return nil
}

func compressPayload(payload []byte, compression CompressionType) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return payload, nil

	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil

	case CompressionZSTD:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd compress: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(payload, nil), nil

	default:
		return nil, fmt.Errorf("unknown compression type %d", compression)
	}
}

func decompressPayload(stored []byte, compression CompressionType) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return stored, nil

	case CompressionLZ4:
		zr := lz4.NewReader(bytes.NewReader(stored))
		payload, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return payload, nil

	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		defer dec.Close()
		payload, err := dec.DecodeAll(stored, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unknown compression type %d", compression)
	}
}
