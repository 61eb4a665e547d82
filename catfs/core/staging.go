package core

import (
	"encoding/json"

	"github.com/sahib/snap/catfs/db"
	ie "github.com/sahib/snap/catfs/errors"
	log "github.com/sirupsen/logrus"
)

// StagingArea is the ordered set of paths that will go into the next snapshot.
// It is stored as one record, so every change replaces it as a whole.
type StagingArea struct {
	kv  db.Database
	src FileSource
}

// NewStagingArea returns a staging area persisted in `kv`,
// checking paths against `src`.
func NewStagingArea(kv db.Database, src FileSource) *StagingArea {
	return &StagingArea{kv: kv, src: src}
}

// List returns the staged paths in the order they were staged.
func (sa *StagingArea) List() ([]string, error) {
	data, err := sa.kv.Get("stage", "paths")
	if err == db.ErrNoSuchKey {
		return []string{}, nil
	}

	if err != nil {
		return nil, err
	}

	paths := []string{}
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, err
	}

	return paths, nil
}

func (sa *StagingArea) save(batch db.Batch, paths []string) error {
	data, err := json.Marshal(paths)
	if err != nil {
		return err
	}

	batch.Put(data, "stage", "paths")
	return nil
}

func indexOf(paths []string, path string) int {
	for idx, staged := range paths {
		if staged == path {
			return idx
		}
	}

	return -1
}

// Stage adds `path` to the end of the staging area.
// It fails with ie.NoSuchFile if `path` is not a readable regular file
// and with ie.ErrAlreadyStaged if it is staged already.
func (sa *StagingArea) Stage(path string) (err error) {
	path, err = NormalizePath(path)
	if err != nil {
		return err
	}

	fd, err := sa.src.Open(path)
	if err != nil {
		if ie.IsBadPath(err) {
			return err
		}

		log.Debugf("cannot open `%s` for staging: %v", path, err)
		return ie.NoSuchFile(path)
	}

	if err := fd.Close(); err != nil {
		return err
	}

	paths, err := sa.List()
	if err != nil {
		return err
	}

	if indexOf(paths, path) >= 0 {
		return ie.ErrAlreadyStaged
	}

	batch := sa.kv.Batch()
	defer func() {
		if err != nil {
			batch.Rollback()
		} else {
			err = batch.Flush()
		}
	}()

	return sa.save(batch, append(paths, path))
}

// Unstage removes `path` from the staging area.
// It fails with ie.ErrNotStaged if it was not staged.
func (sa *StagingArea) Unstage(path string) (err error) {
	path, err = NormalizePath(path)
	if err != nil {
		return err
	}

	paths, err := sa.List()
	if err != nil {
		return err
	}

	idx := indexOf(paths, path)
	if idx < 0 {
		return ie.ErrNotStaged
	}

	batch := sa.kv.Batch()
	defer func() {
		if err != nil {
			batch.Rollback()
		} else {
			err = batch.Flush()
		}
	}()

	return sa.save(batch, append(paths[:idx:idx], paths[idx+1:]...))
}

// clear empties the staging area as part of `batch`.
func (sa *StagingArea) clear(batch db.Batch) error {
	return sa.save(batch, []string{})
}
