package util

import (
	"os"
	"path/filepath"

	e "github.com/pkg/errors"
)

// AtomicWriteFile writes `data` to `path` so that readers either see the
// old content or the complete new content: the data goes to a temp file
// in the same directory, gets synced and is then renamed over `path`.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	fd, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return e.Wrap(err, "create temp file")
	}

	tmpPath := fd.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	if _, err = fd.Write(data); err != nil {
		fd.Close()
		return e.Wrap(err, "write temp file")
	}

	if err = fd.Sync(); err != nil {
		fd.Close()
		return e.Wrap(err, "fsync temp file")
	}

	if err = fd.Chmod(perm); err != nil {
		fd.Close()
		return e.Wrap(err, "chmod temp file")
	}

	if err = fd.Close(); err != nil {
		return e.Wrap(err, "close temp file")
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return e.Wrap(err, "rename temp file")
	}

	return nil
}

// SyncDir fsyncs a directory, so a previous rename inside of it is durable.
func SyncDir(dir string) error {
	fd, err := os.Open(dir)
	if err != nil {
		return err
	}

	defer Closer(fd)
	return fd.Sync()
}
