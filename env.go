package memenv

// Env is the file-management surface of the storage environment. Engine
// components hold an Env and never care whether bytes live on disk or in
// memory.
//
// Implementations must be safe for concurrent use of all Env methods. Byte
// access through the returned handles follows the single-writer contract
// documented on each handle type.
type Env interface {
	// NewSequentialFile opens name for cursor-based sequential reads.
	NewSequentialFile(name string) (SequentialFile, error)

	// NewRandomAccessFile opens name for stateless positional reads.
	NewRandomAccessFile(name string) (RandomAccessFile, error)

	// NewWritableFile creates name for appending, truncating any existing
	// content under that name. Handles opened before the truncation keep
	// the old content alive until closed.
	NewWritableFile(name string, optFns ...func(o *WritableFileOptions)) (WritableFile, error)

	// FileExists reports whether name is present.
	FileExists(name string) bool

	// GetChildren returns the names directly or transitively under dir,
	// relative to dir, in lexicographic order.
	GetChildren(dir string) ([]string, error)

	// DeleteFile removes name. Open handles keep the content alive.
	DeleteFile(name string) error

	// CreateDir, DeleteDir and SyncDir exist for interface compatibility
	// with the disk-backed environment. They always succeed here: the
	// in-memory namespace is flat and directories are a naming convention.
	CreateDir(name string) error
	DeleteDir(name string) error
	SyncDir(name string) error

	// DeleteRecursively removes every file under dir. It never fails when
	// nothing matches.
	DeleteRecursively(dir string) error

	// GetFileSize returns the logical size of name in bytes.
	GetFileSize(name string) (uint64, error)

	// RenameFile moves src to dst, replacing any existing dst.
	RenameFile(src, dst string) error

	// LockFile and UnlockFile provide cooperative advisory locks. They
	// never contend and never fail.
	LockFile(name string) (*FileLock, error)
	UnlockFile(lock *FileLock) error

	// TestDirectory returns the well-known root for ephemeral test data.
	TestDirectory() (string, error)
}

// SequentialFile reads a file front to back through an advancing cursor.
//
// Not safe for concurrent use.
type SequentialFile interface {
	// Read returns up to n bytes at the cursor and advances it by the
	// number of bytes returned. Short reads at end-of-file are not
	// errors. The result may alias internal storage or scratch; it is
	// valid until the next Read or Close.
	Read(n int, scratch []byte) ([]byte, error)

	// Skip advances the cursor by up to n bytes, stopping at end-of-file.
	Skip(n uint64) error

	// Close releases the handle's reference to the file.
	Close() error
}

// RandomAccessFile reads arbitrary byte ranges of a file.
//
// Safe for concurrent Reads as long as no writer is appending to the file.
type RandomAccessFile interface {
	// Read returns up to n bytes starting at off, clamped to the file
	// size. It fails with ErrOutOfRange when off exceeds the size.
	Read(off uint64, n int, scratch []byte) ([]byte, error)

	// Size returns the file's logical size in bytes.
	Size() (uint64, error)

	// Close releases the handle's reference to the file.
	Close() error
}

// WritableFile appends to a file. At most one writer may be open per name,
// and Appends must not run concurrently with reads of the same file.
type WritableFile interface {
	// Append writes p after the current content.
	Append(p []byte) error

	// AppendChunks appends each chunk in order. The write is not atomic:
	// on failure a prefix of the chunks may have been written.
	AppendChunks(chunks ...[]byte) error

	// PreAllocate reserves capacity for n more bytes without changing
	// the file size.
	PreAllocate(n uint64) error

	// Close, Flush and Sync are no-ops: there is no durability to
	// guarantee for memory-resident bytes. Close additionally releases
	// the handle's reference to the file.
	Close() error
	Flush() error
	Sync() error

	// Size returns the file's logical size in bytes.
	Size() uint64
}

// WritableFileOptions tunes writable file creation. The in-memory
// environment accepts all options and ignores them: they exist so callers
// can pass the same tuning they would to the disk-backed environment.
type WritableFileOptions struct {
	// SyncOnClose requests an fsync before Close returns. Meaningless in
	// memory; accepted for call-site compatibility.
	SyncOnClose bool

	// PreAllocateBytes hints the expected file size.
	PreAllocateBytes uint64
}

// FileLock is the opaque token returned by Env.LockFile. Locks are purely
// cooperative bookkeeping scoped to the process.
type FileLock struct {
	name string
}

// Name returns the path the lock was taken on.
func (l *FileLock) Name() string {
	return l.name
}
