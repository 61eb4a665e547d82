package core

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"

	e "github.com/pkg/errors"
	"github.com/sahib/snap/catfs/db"
	ie "github.com/sahib/snap/catfs/errors"
	"github.com/sahib/snap/util"
	h "github.com/sahib/snap/util/hashlib"
	log "github.com/sirupsen/logrus"
)

// Layout of a DirCopyStore:
//
// <base>/<BRANCH>/snapshot-<SEQ>/manifest.json  => SNAPSHOT_METADATA
// <base>/<BRANCH>/snapshot-<SEQ>/message.txt    => MESSAGE + TIMESTAMP
// <base>/<BRANCH>/snapshot-<SEQ>/files/<PATH>   => FILE_CONTENT
//
// A snapshot is assembled in <base>/<BRANCH>/.tmp-* and renamed
// into place when complete. The number of committed snapshots per branch
// is kept in the database (dircopy/<BRANCH>) and written in the same batch
// as the rest of the snapshot. Directories at or above that count are
// leftovers of an interrupted snapshot and are replaced by the next one.

const snapshotDirPrefix = "snapshot-"

// DirCopyStore is a SnapshotStore that stores a full copy
// of every staged file in a directory per snapshot.
type DirCopyStore struct {
	baseDir string
	kv      db.Database
	src     FileSource
	hasher  *h.Hasher
}

// NewDirCopyStore returns a store writing below `baseDir`.
// File content is read from `src`; `hasher` must be the one
// that produced the manifest digests.
func NewDirCopyStore(baseDir string, kv db.Database, src FileSource, hasher *h.Hasher) (*DirCopyStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}

	return &DirCopyStore{
		baseDir: baseDir,
		kv:      kv,
		src:     src,
		hasher:  hasher,
	}, nil
}

func (ds *DirCopyStore) snapshotDir(branch string, seq int) string {
	return filepath.Join(ds.baseDir, branch, fmt.Sprintf("%s%d", snapshotDirPrefix, seq))
}

// FilePath returns where the copy of `path` in `snap` lives on disk.
func (ds *DirCopyStore) FilePath(snap *Snapshot, path string) string {
	return filepath.Join(ds.snapshotDir(snap.Branch, snap.Seq), "files", filepath.FromSlash(path))
}

func (ds *DirCopyStore) copyFile(dst, path, digest string) error {
	fd, err := ds.src.Open(path)
	if err != nil {
		return ie.FileUnreadable(path, err)
	}

	defer util.Closer(fd)

	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	hw := ds.hasher.Writer()
	if _, err := io.Copy(io.MultiWriter(out, hw), fd); err != nil {
		out.Close()
		return ie.FileUnreadable(path, err)
	}

	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}

	// The file might have been modified since it was hashed.
	if got := hw.Finalize().Hex(); got != digest {
		return ie.FileUnreadable(path, e.Errorf("content changed while copying (%s != %s)", got, digest))
	}

	return nil
}

func (ds *DirCopyStore) committed(branch string) (int, error) {
	data, err := ds.kv.Get("dircopy", branch)
	if err == db.ErrNoSuchKey {
		return 0, nil
	}

	if err != nil {
		return 0, err
	}

	count, err := strconv.Atoi(string(data))
	if err != nil || count < 0 {
		return 0, e.Errorf("corrupt snapshot count for `%s`: %q", branch, data)
	}

	return count, nil
}

// Append is described in the SnapshotStore interface.
// The snapshot only becomes visible once `batch` is flushed.
func (ds *DirCopyStore) Append(batch db.Batch, snap *Snapshot) (err error) {
	history, err := ds.History(snap.Branch)
	if err != nil {
		return err
	}

	if snap.Seq != len(history) {
		return e.Errorf(
			"bad sequence number for `%s`: got %d, expected %d",
			snap.Branch, snap.Seq, len(history),
		)
	}

	branchDir := filepath.Join(ds.baseDir, snap.Branch)
	if err := os.MkdirAll(branchDir, 0700); err != nil {
		return err
	}

	tmpDir, err := ioutil.TempDir(branchDir, ".tmp-")
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			os.RemoveAll(tmpDir)
		}
	}()

	for _, path := range snap.Manifest.Paths() {
		dst := filepath.Join(tmpDir, "files", filepath.FromSlash(path))
		if err = ds.copyFile(dst, path, snap.Manifest.Files[path]); err != nil {
			return err
		}
	}

	meta, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	if err = util.AtomicWriteFile(filepath.Join(tmpDir, "manifest.json"), meta, 0600); err != nil {
		return err
	}

	msg := fmt.Sprintf("%s\nTimestamp: %s", snap.Manifest.Message, snap.Created.Format("Mon Jan _2 15:04:05 2006"))
	if err = util.AtomicWriteFile(filepath.Join(tmpDir, "message.txt"), []byte(msg), 0600); err != nil {
		return err
	}

	finalDir := ds.snapshotDir(snap.Branch, snap.Seq)
	if _, statErr := os.Stat(finalDir); statErr == nil {
		log.Warningf("dircopy: replacing uncommitted leftover %s", finalDir)
		if err = os.RemoveAll(finalDir); err != nil {
			return err
		}
	}

	if err = os.Rename(tmpDir, finalDir); err != nil {
		return err
	}

	if err = util.SyncDir(branchDir); err != nil {
		return err
	}

	log.Debugf("dircopy: wrote %s", finalDir)
	batch.Put([]byte(strconv.Itoa(snap.Seq+1)), "dircopy", snap.Branch)
	return nil
}

// History is described in the SnapshotStore interface.
func (ds *DirCopyStore) History(branch string) ([]*Snapshot, error) {
	count, err := ds.committed(branch)
	if err != nil {
		return nil, err
	}

	history := make([]*Snapshot, 0, count)
	for seq := 0; seq < count; seq++ {
		metaPath := filepath.Join(ds.snapshotDir(branch, seq), "manifest.json")
		data, err := ioutil.ReadFile(metaPath)
		if err != nil {
			return nil, e.Wrapf(err, "read %s", metaPath)
		}

		snap := &Snapshot{}
		if err := json.Unmarshal(data, snap); err != nil {
			return nil, e.Wrapf(err, "corrupt snapshot %s", metaPath)
		}

		history = append(history, snap)
	}

	return history, nil
}
