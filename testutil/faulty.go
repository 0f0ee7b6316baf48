package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/memenv"
)

// Fault defines specific failure behavior.
type Fault struct {
	FailAfterBytes int64 // Fail appends after this many bytes written TO THIS FILE. -1 to disable.
	FailOnSync     bool
	FailOnClose    bool
	Err            error
}

// FaultyEnv is an Env wrapper that can inject errors on the write path.
// File-management operations pass through unchanged.
type FaultyEnv struct {
	memenv.Env

	mu      sync.Mutex
	rules   map[string]Fault // Name pattern -> Fault
	Default Fault            // Fallback

	// Err is the error injected when a matching rule carries none.
	Err error
}

// NewFaultyEnv creates a FaultyEnv wrapping env.
func NewFaultyEnv(env memenv.Env) *FaultyEnv {
	return &FaultyEnv{
		Env:   env,
		rules: make(map[string]Fault),
		Default: Fault{
			FailAfterBytes: -1, // No limit
		},
		Err: fmt.Errorf("injected fault error"),
	}
}

// AddRule adds a fault injection rule for a specific name pattern. A rule
// applies to every file whose name contains pattern.
func (f *FaultyEnv) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

func (f *FaultyEnv) NewWritableFile(name string, optFns ...func(o *memenv.WritableFileOptions)) (memenv.WritableFile, error) {
	w, err := f.Env.NewWritableFile(name, optFns...)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	fault := f.Default
	// Match pattern (last winning match)
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			fault = rule
		}
	}
	if fault.Err == nil {
		fault.Err = f.Err
	}
	f.mu.Unlock()

	return &faultyWritableFile{WritableFile: w, fault: fault}, nil
}

type faultyWritableFile struct {
	memenv.WritableFile
	fault   Fault
	written int64
}

func (fw *faultyWritableFile) Append(p []byte) error {
	if fw.fault.FailAfterBytes >= 0 && fw.written+int64(len(p)) > fw.fault.FailAfterBytes {
		return fw.fault.Err
	}
	if err := fw.WritableFile.Append(p); err != nil {
		return err
	}
	fw.written += int64(len(p))
	return nil
}

func (fw *faultyWritableFile) AppendChunks(chunks ...[]byte) error {
	for _, chunk := range chunks {
		if err := fw.Append(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (fw *faultyWritableFile) Sync() error {
	if fw.fault.FailOnSync {
		return fw.fault.Err
	}
	return fw.WritableFile.Sync()
}

func (fw *faultyWritableFile) Close() error {
	if fw.fault.FailOnClose {
		// Release the handle regardless so the file is not leaked.
		_ = fw.WritableFile.Close()
		return fw.fault.Err
	}
	return fw.WritableFile.Close()
}
