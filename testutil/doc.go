// Package testutil provides testing utilities for the in-memory environment.
//
// This package is intended for use in tests and benchmarks only.
//
// # Fault Injection
//
// [FaultyEnv] wraps an [memenv.Env] and injects write, sync or close
// failures, globally or per name pattern:
//
//	fenv := testutil.NewFaultyEnv(memenv.New())
//	fenv.AddRule("MANIFEST", testutil.Fault{FailAfterBytes: 1024})
//	// inject fenv into the component under test
//
// # Throughput Throttling
//
// [ThrottledEnv] caps read and append throughput to emulate slow media:
//
//	tenv := testutil.NewThrottledEnv(memenv.New(), 1<<20) // 1 MiB/s
//
// # Per-Test Scratch Directories
//
// [ScratchDir] creates a uniquely named directory under the environment's
// test root and removes it when the test finishes:
//
//	dir := testutil.ScratchDir(t, env)
//	w, _ := env.NewWritableFile(dir + "/data.bin")
package testutil
