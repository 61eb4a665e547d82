// Package testutil contains helpers shared by the tests of several packages.
package testutil

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

// CreateDummyBuf creates a byte slice that is `size` big.
// It's filled with the repeating numbers [0...254].
func CreateDummyBuf(size int64) []byte {
	buf := make([]byte, size)

	for i := int64(0); i < size; i++ {
		// Be evil and stripe the data:
		buf[i] = byte(i % 255)
	}

	return buf
}

// WriteFile writes `data` to `rel` below `dir`, creating parent dirs.
// The test fails if it cannot do that.
func WriteFile(t *testing.T, dir, rel string, data []byte) string {
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent of `%s`: %v", path, err)
	}

	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write `%s`: %v", path, err)
	}

	return path
}

// TempDir creates a temporary directory and returns it together
// with a function that removes it again.
func TempDir(t *testing.T, prefix string) (string, func()) {
	dir, err := ioutil.TempDir("", prefix)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	return dir, func() { Remover(t, dir) }
}

// Remover removes all files in paths recursively and errors when it fails.
// It is no error if there's nothing to delete. It's useful in defer statements.
func Remover(t *testing.T, paths ...string) {
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			t.Errorf("removing temp directory failed: %v", err)
		}
	}
}
