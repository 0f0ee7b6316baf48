package memenv

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/memenv/internal/block"
)

// Separator is the path separator of the flat namespace. "Directories" are a
// naming convention over it, not stored entities.
const Separator = "/"

// InMemEnv implements Env with a flat name-to-file table held in process
// memory. The zero value is not usable; construct with New.
type InMemEnv struct {
	logger  *slog.Logger
	testDir string

	// resident tracks block bytes held by live files, including files
	// already removed from the table but kept alive by open handles.
	resident atomic.Int64

	mu sync.Mutex
	// files maps flat path strings to block files. Each entry holds one
	// reference (the resident reference); every open handle holds one
	// more. Protected by mu.
	files map[string]*block.File
}

var _ Env = (*InMemEnv)(nil)

// New creates an empty in-memory environment.
func New(optFns ...func(o *Options)) *InMemEnv {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = noopLogger()
	}

	return &InMemEnv{
		logger:  opts.Logger,
		testDir: opts.TestDir,
		files:   make(map[string]*block.File),
	}
}

// NewSequentialFile opens name for sequential reads.
func (e *InMemEnv) NewSequentialFile(name string) (SequentialFile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	f.Ref()
	return &sequentialFile{file: f}, nil
}

// NewRandomAccessFile opens name for positional reads.
func (e *InMemEnv) NewRandomAccessFile(name string) (RandomAccessFile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	f.Ref()
	return &randomAccessFile{file: f}, nil
}

// NewWritableFile creates name for appending. An existing file under the
// same name is dropped from the table first, so creation always truncates;
// handles opened on the old file keep its content alive until they close.
func (e *InMemEnv) NewWritableFile(name string, optFns ...func(o *WritableFileOptions)) (WritableFile, error) {
	var opts WritableFileOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	_ = opts // No disk-specific tuning applies in memory.

	e.mu.Lock()
	defer e.mu.Unlock()

	e.deleteLocked(name)

	f := block.New(&e.resident)
	f.Ref() // resident reference
	e.files[name] = f

	f.Ref() // handle reference
	e.logger.Debug("created writable file", "name", name)
	return &writableFile{file: f}, nil
}

// FileExists reports whether name is present in the table.
func (e *InMemEnv) FileExists(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.files[name]
	return ok
}

// GetChildren returns every name that has dir as a strict prefix followed by
// the separator, relative to dir and sorted lexicographically.
func (e *InMemEnv) GetChildren(dir string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prefix := dir + Separator

	var children []string
	for name := range e.files {
		if strings.HasPrefix(name, prefix) {
			children = append(children, name[len(prefix):])
		}
	}
	sort.Strings(children)

	return children, nil
}

// DeleteFile removes name from the table and releases the resident
// reference. Content stays alive for handles opened before the delete.
func (e *InMemEnv) DeleteFile(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.files[name]; !ok {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	e.deleteLocked(name)
	e.logger.Debug("deleted file", "name", name)
	return nil
}

// CreateDir is a no-op: the namespace is flat.
func (e *InMemEnv) CreateDir(name string) error { return nil }

// DeleteDir is a no-op: the namespace is flat.
func (e *InMemEnv) DeleteDir(name string) error { return nil }

// SyncDir is a no-op: there is nothing to sync.
func (e *InMemEnv) SyncDir(name string) error { return nil }

// DeleteRecursively removes every file under dir. The prefix is normalized
// to end with the separator, so dir itself treated as a directory name also
// matches. Never fails when nothing matches.
func (e *InMemEnv) DeleteRecursively(dir string) error {
	prefix := dir
	if !strings.HasSuffix(prefix, Separator) {
		prefix += Separator
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for name := range e.files {
		if strings.HasPrefix(name, prefix) {
			e.deleteLocked(name)
		}
	}

	e.logger.Debug("deleted recursively", "dir", dir)
	return nil
}

// GetFileSize returns the logical size of name.
func (e *InMemEnv) GetFileSize(name string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.files[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	return f.Size(), nil
}

// RenameFile moves src to dst. An existing dst is dropped with delete
// semantics; the resident reference of src is re-keyed without a count
// change, so open handles on src remain valid.
func (e *InMemEnv) RenameFile(src, dst string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.files[src]
	if !ok {
		return fmt.Errorf("%s: %w", src, ErrNotFound)
	}

	e.deleteLocked(dst)
	e.files[dst] = f
	delete(e.files, src)

	e.logger.Debug("renamed file", "src", src, "dst", dst)
	return nil
}

// LockFile returns a cooperative lock token for name. It never contends:
// locks are advisory bookkeeping with no enforcement.
func (e *InMemEnv) LockFile(name string) (*FileLock, error) {
	return &FileLock{name: name}, nil
}

// UnlockFile releases a cooperative lock token.
func (e *InMemEnv) UnlockFile(lock *FileLock) error {
	return nil
}

// TestDirectory returns the well-known root for ephemeral test data.
func (e *InMemEnv) TestDirectory() (string, error) {
	return e.testDir, nil
}

// ResidentBytes returns the block memory currently held by live files,
// including files removed from the table but still referenced by open
// handles. It reaches zero only after every handle is closed.
func (e *InMemEnv) ResidentBytes() int64 {
	return e.resident.Load()
}

// deleteLocked drops name's resident reference and removes the entry.
// Callers must hold e.mu. Missing names are ignored.
func (e *InMemEnv) deleteLocked(name string) {
	f, ok := e.files[name]
	if !ok {
		return
	}

	f.Unref()
	delete(e.files, name)
}
