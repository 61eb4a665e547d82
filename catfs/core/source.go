package core

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	ie "github.com/sahib/snap/catfs/errors"
)

// FileSource gives read access to the files of a working tree.
// Paths are always worktree-relative and slash separated.
type FileSource interface {
	// Open opens the regular file at `path` for reading.
	// Missing files and non-regular files yield ie.NoSuchFile.
	Open(path string) (io.ReadCloser, error)
}

// NormalizePath cleans `p` and checks that it stays inside the worktree.
// The result is slash separated and has no leading slash.
// Paths must be valid UTF-8.
func NormalizePath(p string) (string, error) {
	if p == "" {
		return "", ie.BadPath(p)
	}

	if !utf8.ValidString(p) {
		return "", ie.BadPathEncoding(p)
	}

	slashed := filepath.ToSlash(p)
	if strings.HasPrefix(slashed, "/") {
		return "", ie.BadPath(p)
	}

	cleaned := path.Clean(slashed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ie.BadPath(p)
	}

	return cleaned, nil
}

// DirSource reads files relative to a directory on disk.
type DirSource struct {
	// Root is the working tree directory.
	Root string

	// Hidden lists top-level names that can never be read,
	// like the repository's own metadata folder.
	Hidden []string
}

// NewDirSource returns a FileSource reading below `root`.
func NewDirSource(root string, hidden ...string) *DirSource {
	return &DirSource{Root: root, Hidden: hidden}
}

func (ds *DirSource) isHidden(p string) bool {
	first := strings.SplitN(p, "/", 2)[0]
	for _, hidden := range ds.Hidden {
		if first == hidden {
			return true
		}
	}

	return false
}

// Open is described in the FileSource interface.
func (ds *DirSource) Open(p string) (io.ReadCloser, error) {
	clean, err := NormalizePath(p)
	if err != nil {
		return nil, err
	}

	if ds.isHidden(clean) {
		return nil, ie.BadPath(p)
	}

	fullPath := filepath.Join(ds.Root, filepath.FromSlash(clean))
	info, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		return nil, ie.NoSuchFile(clean)
	}

	if err != nil {
		return nil, err
	}

	if !info.Mode().IsRegular() {
		return nil, ie.NoSuchFile(clean)
	}

	return os.Open(fullPath)
}

// MemorySource is a FileSource that keeps all files in memory.
// It is mostly useful for tests.
type MemorySource struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{files: make(map[string][]byte)}
}

// Set creates or overwrites the file at `p`.
func (ms *MemorySource) Set(p string, data []byte) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.files[path.Clean(p)] = data
}

// Remove deletes the file at `p`, if any.
func (ms *MemorySource) Remove(p string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.files, path.Clean(p))
}

// Open is described in the FileSource interface.
func (ms *MemorySource) Open(p string) (io.ReadCloser, error) {
	clean, err := NormalizePath(p)
	if err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	data, ok := ms.files[clean]
	if !ok {
		return nil, ie.NoSuchFile(clean)
	}

	return ioutil.NopCloser(bytes.NewReader(data)), nil
}
