package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/memenv"
)

// ScratchDir returns a uniquely named directory path for the current test
// under the environment's test root, and registers a cleanup that removes
// everything beneath it when the test finishes.
func ScratchDir(t testing.TB, env memenv.Env) string {
	t.Helper()

	root, err := env.TestDirectory()
	if err != nil {
		t.Fatalf("test directory: %v", err)
	}

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dir := fmt.Sprintf("%s/%s.%d", root, name, time.Now().UnixNano())

	if err := env.CreateDir(dir); err != nil {
		t.Fatalf("create scratch dir %s: %v", dir, err)
	}

	t.Cleanup(func() {
		if err := env.DeleteRecursively(dir); err != nil {
			t.Errorf("delete scratch dir %s: %v", dir, err)
		}
	})

	return dir
}
