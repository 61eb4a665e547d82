package core

import (
	"testing"

	"github.com/sahib/snap/catfs/db"
	ie "github.com/sahib/snap/catfs/errors"
	"github.com/stretchr/testify/require"
)

func TestValidateBranchName(t *testing.T) {
	t.Parallel()

	for _, good := range []string{"main", "dev", "feature-1", "v1.0", "ünïcode"} {
		require.Nil(t, ValidateBranchName(good), good)
	}

	for _, bad := range []string{"", ".", "..", "a/b", "a\\b", "a b", "tab\t", "HEAD", "head", "dev\xff"} {
		require.True(t, ie.IsErrBadBranchName(ValidateBranchName(bad)), bad)
	}
}

func TestBranchCreateAndSwitch(t *testing.T) {
	t.Parallel()

	WithDummyLinker(t, func(lkr *Linker, src *MemorySource) {
		names, err := lkr.Branches()
		require.Nil(t, err)
		require.Equal(t, []string{"main"}, names)

		require.Nil(t, lkr.CreateBranch("dev"))
		require.True(t, ie.IsErrBranchExists(lkr.CreateBranch("dev")))
		require.True(t, ie.IsErrBranchExists(lkr.CreateBranch("main")))
		require.True(t, ie.IsErrBadBranchName(lkr.CreateBranch("a/b")))

		require.True(t, ie.IsErrNoSuchBranch(lkr.SwitchBranch("nope")))

		current, err := lkr.CurrentBranch()
		require.Nil(t, err)
		require.Equal(t, "main", current)

		require.Nil(t, lkr.SwitchBranch("dev"))
		current, err = lkr.CurrentBranch()
		require.Nil(t, err)
		require.Equal(t, "dev", current)

		// Switching to the current branch is fine:
		require.Nil(t, lkr.SwitchBranch("dev"))

		names, err = lkr.Branches()
		require.Nil(t, err)
		require.Equal(t, []string{"dev", "main"}, names)
	})
}

func TestNewBranchHasEmptyHistory(t *testing.T) {
	t.Parallel()

	WithDummyLinker(t, func(lkr *Linker, src *MemorySource) {
		MustStage(t, lkr, src, "f.txt", "hello")
		MustSnapshot(t, lkr, "first")

		require.Nil(t, lkr.CreateBranch("dev"))
		history, err := lkr.History("dev")
		require.Nil(t, err)
		require.Empty(t, history)

		_, err = lkr.History("nope")
		require.True(t, ie.IsErrNoSuchBranch(err))
	})
}

func TestBranchRegistryWithMemoryDatabase(t *testing.T) {
	t.Parallel()

	br := NewBranchRegistry(db.NewMemoryDatabase())
	_, err := br.Current()
	require.Equal(t, ie.ErrNotInitialized, err)

	kv := br.kv
	batch := kv.Batch()
	require.Nil(t, br.init(batch))
	require.Nil(t, batch.Flush())

	current, err := br.Current()
	require.Nil(t, err)
	require.Equal(t, DefaultBranch, current)

	exists, err := br.Exists("main")
	require.Nil(t, err)
	require.True(t, exists)

	exists, err = br.Exists("dev")
	require.Nil(t, err)
	require.False(t, exists)
}
