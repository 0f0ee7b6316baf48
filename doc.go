// Package memenv provides an in-memory implementation of the storage
// environment used by storage-engine components.
//
// The environment exposes the same file-management surface as the disk-backed
// implementation it substitutes for (sequential and random-access readers,
// append-only writers, directory listing, atomic rename, advisory locks) but
// keeps all state in process memory. It exists so engine components can be
// exercised in tests at memory speed and without disk side effects.
//
// # Quick Start
//
//	env := memenv.New()
//
//	w, _ := env.NewWritableFile("data/000001.log")
//	_ = w.Append([]byte("hello"))
//	_ = w.Close()
//
//	r, _ := env.NewRandomAccessFile("data/000001.log")
//	b, _ := r.Read(0, 5, nil)
//
// # Lifetime
//
// Files are reference counted. Deleting or renaming over a name only drops
// the directory table's reference: handles opened before the delete keep the
// content alive and fully usable until they are closed. ResidentBytes reports
// the block memory still held by live files.
//
// # Concurrency
//
// All environment operations (create, open, delete, rename, list) are safe
// for concurrent use. Content access through an open handle is not
// synchronized: at most one writer may append to a file at a time, and reads
// are only safe on files that are not being concurrently appended. This
// mirrors the open-for-write contract of the disk-backed environment.
//
// # Test Fixtures
//
// Snapshot and Restore serialize the whole environment to a compact,
// optionally compressed stream, so expensive test fixtures can be captured
// once and reloaded per test. The testutil package adds fault injection and
// throughput throttling wrappers.
package memenv
