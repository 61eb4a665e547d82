package core

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sahib/snap/catfs/db"
	ie "github.com/sahib/snap/catfs/errors"
	h "github.com/sahib/snap/util/hashlib"
	"github.com/stretchr/testify/require"
)

func withDirCopyLinker(t *testing.T, fn func(lkr *Linker, src *MemorySource, store *DirCopyStore)) {
	WithDummyKv(t, func(kv db.Database) {
		hasher, err := h.NewHasher("sha1")
		require.Nil(t, err)

		src := NewMemorySource()
		store, err := NewDirCopyStore(filepath.Join(t.TempDir(), "snapshots"), kv, src, hasher)
		require.Nil(t, err)

		lkr := NewLinker(kv, hasher, src, store)
		require.Nil(t, lkr.Init())
		fn(lkr, src, store)
	})
}

// Both stores have to behave the same from the linker's point of view.
func withEachStore(t *testing.T, fn func(t *testing.T, lkr *Linker, src *MemorySource)) {
	t.Run("kv", func(t *testing.T) {
		WithDummyLinker(t, func(lkr *Linker, src *MemorySource) {
			fn(t, lkr, src)
		})
	})

	t.Run("dircopy", func(t *testing.T) {
		withDirCopyLinker(t, func(lkr *Linker, src *MemorySource, _ *DirCopyStore) {
			fn(t, lkr, src)
		})
	})
}

func TestStoresBehaveTheSame(t *testing.T) {
	withEachStore(t, func(t *testing.T, lkr *Linker, src *MemorySource) {
		MustStage(t, lkr, src, "f.txt", "hello")
		first := MustSnapshot(t, lkr, "first")
		require.Equal(t, "5ccdef4fbd4d604932f607888ef289493841fb15", first.ID)

		require.Nil(t, lkr.CreateBranch("dev"))
		require.Nil(t, lkr.SwitchBranch("dev"))
		MustStage(t, lkr, src, "g.txt", "x")
		MustSnapshot(t, lkr, "dev work")

		mainHistory, err := lkr.History("main")
		require.Nil(t, err)
		require.Len(t, mainHistory, 1)
		require.Equal(t, first.ID, mainHistory[0].ID)
		require.Equal(t, first.Manifest, mainHistory[0].Manifest)

		devHistory, err := lkr.History("dev")
		require.Nil(t, err)
		require.Len(t, devHistory, 1)

		_, err = lkr.MakeSnapshot("again")
		require.Equal(t, ie.ErrNothingToSnapshot, err)
	})
}

func TestDirCopyLayout(t *testing.T) {
	withDirCopyLinker(t, func(lkr *Linker, src *MemorySource, store *DirCopyStore) {
		MustStage(t, lkr, src, "dir/f.txt", "hello")
		snap := MustSnapshot(t, lkr, "first")

		data, err := ioutil.ReadFile(store.FilePath(snap, "dir/f.txt"))
		require.Nil(t, err)
		require.Equal(t, []byte("hello"), data)

		snapDir := filepath.Join(store.baseDir, "main", "snapshot-0")
		msg, err := ioutil.ReadFile(filepath.Join(snapDir, "message.txt"))
		require.Nil(t, err)
		require.True(t, strings.HasPrefix(string(msg), "first\nTimestamp: "))

		_, err = os.Stat(filepath.Join(snapDir, "manifest.json"))
		require.Nil(t, err)

		// No temp dirs are left over:
		entries, err := ioutil.ReadDir(filepath.Join(store.baseDir, "main"))
		require.Nil(t, err)
		require.Len(t, entries, 1)
	})
}

func TestDirCopyNumericOrder(t *testing.T) {
	withDirCopyLinker(t, func(lkr *Linker, src *MemorySource, store *DirCopyStore) {
		for idx := 0; idx < 12; idx++ {
			MustStage(t, lkr, src, "f.txt", strings.Repeat("x", idx))
			MustSnapshot(t, lkr, "msg")
		}

		history, err := store.History("main")
		require.Nil(t, err)
		require.Len(t, history, 12)
		for idx, snap := range history {
			require.Equal(t, idx, snap.Seq)
		}
	})
}

func TestDirCopyDetectsChangedContent(t *testing.T) {
	withDirCopyLinker(t, func(lkr *Linker, src *MemorySource, store *DirCopyStore) {
		MustStage(t, lkr, src, "f.txt", "hello")

		hasher := lkr.Hasher()
		manifest := NewManifest("racy")
		manifest.Files["f.txt"] = hasher.Digest([]byte("something else"))

		snap := &Snapshot{Manifest: manifest, Branch: "main", Seq: 0}
		err := store.Append(nil, snap)
		require.True(t, ie.IsFileUnreadable(err))

		history, err := store.History("main")
		require.Nil(t, err)
		require.Empty(t, history)

		entries, err := ioutil.ReadDir(filepath.Join(store.baseDir, "main"))
		require.Nil(t, err)
		require.Empty(t, entries)
	})
}

func TestStoreRejectsBadSeq(t *testing.T) {
	withDirCopyLinker(t, func(lkr *Linker, src *MemorySource, store *DirCopyStore) {
		snap := &Snapshot{Manifest: NewManifest("x"), Branch: "main", Seq: 3}
		require.NotNil(t, store.Append(nil, snap))

		kvStore := NewKvSnapshotStore(lkr.KV())
		batch := lkr.KV().Batch()
		require.NotNil(t, kvStore.Append(batch, snap))
		batch.Rollback()
	})
}

func TestDirCopyIgnoresUncommittedSnapshot(t *testing.T) {
	withDirCopyLinker(t, func(lkr *Linker, src *MemorySource, store *DirCopyStore) {
		MustStage(t, lkr, src, "f.txt", "hello")

		// The directory gets renamed into place, but the batch never lands;
		// just like a crash right before the flush.
		manifest := NewManifest("lost")
		manifest.Files["f.txt"] = lkr.Hasher().Digest([]byte("hello"))
		lost := &Snapshot{Manifest: manifest, Branch: "main", Seq: 0}

		batch := lkr.KV().Batch()
		require.Nil(t, store.Append(batch, lost))
		batch.Rollback()

		_, err := os.Stat(filepath.Join(store.baseDir, "main", "snapshot-0"))
		require.Nil(t, err)

		history, err := lkr.History("main")
		require.Nil(t, err)
		require.Empty(t, history)

		staged, err := lkr.Staged()
		require.Nil(t, err)
		require.Equal(t, []string{"f.txt"}, staged)

		// The next snapshot takes over the leftover directory.
		snap := MustSnapshot(t, lkr, "first")
		require.Equal(t, 0, snap.Seq)

		history, err = lkr.History("main")
		require.Nil(t, err)
		require.Len(t, history, 1)
		require.Equal(t, "first", history[0].Manifest.Message)

		msg, err := ioutil.ReadFile(filepath.Join(store.baseDir, "main", "snapshot-0", "message.txt"))
		require.Nil(t, err)
		require.True(t, strings.HasPrefix(string(msg), "first\n"))
	})
}
