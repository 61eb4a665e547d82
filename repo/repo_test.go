package repo

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	ie "github.com/sahib/snap/catfs/errors"
	"github.com/sahib/snap/util/testutil"
	"github.com/stretchr/testify/require"
)

func withTempDir(t *testing.T, fn func(dir string)) {
	dir, cleanup := testutil.TempDir(t, "snap-repo-test-")
	defer cleanup()

	fn(dir)
}

func withOpenRepo(t *testing.T, opts InitOptions, fn func(rp *Repository)) {
	withTempDir(t, func(dir string) {
		require.Nil(t, Init(dir, opts))

		rp, err := Open(dir)
		require.Nil(t, err)

		fn(rp)
		require.Nil(t, rp.Close())
	})
}

func TestRepoInitLayout(t *testing.T) {
	withTempDir(t, func(dir string) {
		require.Nil(t, Init(dir, InitOptions{}))
		require.True(t, IsRepo(dir))

		for _, name := range []string{"config.yml", "meta"} {
			_, err := os.Stat(filepath.Join(dir, MetaFolderName, name))
			require.Nil(t, err, name)
		}

		// The lock is only held while the repo is open.
		_, err := os.Stat(filepath.Join(dir, MetaFolderName, "lock"))
		require.True(t, os.IsNotExist(err))
	})
}

func TestRepoInitTwice(t *testing.T) {
	withTempDir(t, func(dir string) {
		require.Nil(t, Init(dir, InitOptions{}))

		rp, err := Open(dir)
		require.Nil(t, err)
		id := rp.ID()
		require.Nil(t, rp.Close())

		require.Equal(t, ie.ErrAlreadyInitialized, Init(dir, InitOptions{HashAlgo: "sha256"}))

		rp, err = Open(dir)
		require.Nil(t, err)
		require.Equal(t, id, rp.ID())
		require.Equal(t, "sha1", rp.FS().HashAlgorithm())
		require.Nil(t, rp.Close())
	})
}

func TestRepoInitBadOptions(t *testing.T) {
	withTempDir(t, func(dir string) {
		require.NotNil(t, Init(dir, InitOptions{HashAlgo: "md5"}))
		require.False(t, IsRepo(dir))
	})
}

func TestRepoOpenNotInitialized(t *testing.T) {
	withTempDir(t, func(dir string) {
		_, err := Open(dir)
		require.Equal(t, ie.ErrNotInitialized, err)
	})
}

func TestRepoStoresID(t *testing.T) {
	withOpenRepo(t, InitOptions{}, func(rp *Repository) {
		require.Len(t, rp.ID(), 36)

		id, err := rp.FS().Metadata("id")
		require.Nil(t, err)
		require.Equal(t, rp.ID(), string(id))
	})
}

func TestRepoSnapshotScenario(t *testing.T) {
	for _, backend := range []string{"disk", "badger", "memory"} {
		t.Run(backend, func(t *testing.T) {
			withTempDir(t, func(dir string) {
				require.Nil(t, Init(dir, InitOptions{Database: backend}))
				testutil.WriteFile(t, dir, "f.txt", []byte("hello"))

				rp, err := Open(dir)
				require.Nil(t, err)
				require.Nil(t, rp.FS().Stage("f.txt"))
				require.Nil(t, rp.Close())

				rp, err = Open(dir)
				require.Nil(t, err)

				snap, err := rp.FS().MakeSnapshot("first")
				require.Nil(t, err)
				require.Equal(t, "5ccdef4fbd4d604932f607888ef289493841fb15", snap.ID)
				require.Nil(t, rp.Close())

				rp, err = Open(dir)
				require.Nil(t, err)

				hist, err := rp.FS().History("main")
				require.Nil(t, err)
				require.Len(t, hist, 1)

				staged, err := rp.FS().Staged()
				require.Nil(t, err)
				require.Empty(t, staged)
				require.Nil(t, rp.Close())
			})
		})
	}
}

func TestRepoMetaFolderIsHidden(t *testing.T) {
	withOpenRepo(t, InitOptions{}, func(rp *Repository) {
		err := rp.FS().Stage(".snap/config.yml")
		require.True(t, ie.IsBadPath(err))
	})
}

func TestRepoDirCopyStrategy(t *testing.T) {
	withOpenRepo(t, InitOptions{Strategy: "dircopy"}, func(rp *Repository) {
		testutil.WriteFile(t, rp.BaseFolder, "sub/a.txt", []byte("a"))
		require.Nil(t, rp.FS().Stage("sub/a.txt"))

		_, err := rp.FS().MakeSnapshot("copy")
		require.Nil(t, err)

		data, err := ioutil.ReadFile(filepath.Join(
			rp.BaseFolder, MetaFolderName, "snapshots", "main", "snapshot-0", "files", "sub", "a.txt",
		))
		require.Nil(t, err)
		require.Equal(t, "a", string(data))
	})
}

func TestRepoLocked(t *testing.T) {
	withTempDir(t, func(dir string) {
		require.Nil(t, Init(dir, InitOptions{}))

		rp, err := Open(dir)
		require.Nil(t, err)
		require.Nil(t, rp.Config.SetString("lock.timeout", "0s"))
		require.Nil(t, rp.SaveConfig())
		require.Nil(t, rp.Close())

		// Simulate another process holding the lock.
		lockPath := testutil.WriteFile(t, dir, MetaFolderName+"/lock", []byte("1\n"))
		_, err = Open(dir)
		require.Equal(t, ErrRepoLocked, err)

		require.Nil(t, os.Remove(lockPath))
		rp, err = Open(dir)
		require.Nil(t, err)
		require.Nil(t, rp.Close())
	})
}

func TestRepoOpenTwiceInSameProcess(t *testing.T) {
	withTempDir(t, func(dir string) {
		require.Nil(t, Init(dir, InitOptions{}))

		rp, err := Open(dir)
		require.Nil(t, err)
		require.Nil(t, rp.Config.SetString("lock.timeout", "0s"))
		require.Nil(t, rp.SaveConfig())

		_, err = Open(dir)
		require.Equal(t, ErrRepoLocked, err)

		// The failed open must not have removed the lock of `rp`.
		_, err = os.Stat(filepath.Join(dir, MetaFolderName, "lock"))
		require.Nil(t, err)

		testutil.WriteFile(t, dir, "f.txt", []byte("hello"))
		require.Nil(t, rp.FS().Stage("f.txt"))
		require.Nil(t, rp.Close())

		rp, err = Open(dir)
		require.Nil(t, err)
		staged, err := rp.FS().Staged()
		require.Nil(t, err)
		require.Equal(t, []string{"f.txt"}, staged)
		require.Nil(t, rp.Close())
	})
}

func TestRepoWorktreePath(t *testing.T) {
	withOpenRepo(t, InitOptions{}, func(rp *Repository) {
		sub := filepath.Join(rp.BaseFolder, "sub")

		path, err := rp.WorktreePath(sub, "a.txt")
		require.Nil(t, err)
		require.Equal(t, "sub/a.txt", path)

		path, err = rp.WorktreePath("/", filepath.Join(rp.BaseFolder, "b.txt"))
		require.Nil(t, err)
		require.Equal(t, "b.txt", path)

		_, err = rp.WorktreePath(rp.BaseFolder, "../outside.txt")
		require.True(t, ie.IsBadPath(err))
	})
}

func TestFindRepo(t *testing.T) {
	withTempDir(t, func(dir string) {
		require.Nil(t, Init(dir, InitOptions{}))

		nested := filepath.Join(dir, "a", "b", "c")
		require.Nil(t, os.MkdirAll(nested, 0755))

		absDir, err := filepath.Abs(dir)
		require.Nil(t, err)
		require.Equal(t, absDir, FindRepo(nested))
		require.Equal(t, absDir, FindRepo(dir))
	})

	withTempDir(t, func(dir string) {
		require.False(t, IsRepo(dir))
	})
}
