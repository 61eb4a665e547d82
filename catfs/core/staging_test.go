package core

import (
	"testing"

	ie "github.com/sahib/snap/catfs/errors"
	"github.com/stretchr/testify/require"
)

func TestStageKeepsOrder(t *testing.T) {
	t.Parallel()

	WithDummyLinker(t, func(lkr *Linker, src *MemorySource) {
		for _, path := range []string{"c", "a", "dir/b"} {
			MustStage(t, lkr, src, path, path)
		}

		staged, err := lkr.Staged()
		require.Nil(t, err)
		require.Equal(t, []string{"c", "a", "dir/b"}, staged)
	})
}

func TestStageTwice(t *testing.T) {
	t.Parallel()

	WithDummyLinker(t, func(lkr *Linker, src *MemorySource) {
		MustStage(t, lkr, src, "f.txt", "hello")
		require.Equal(t, ie.ErrAlreadyStaged, lkr.Stage("f.txt"))

		// Different spelling, same path:
		require.Equal(t, ie.ErrAlreadyStaged, lkr.Stage("./x/../f.txt"))

		staged, err := lkr.Staged()
		require.Nil(t, err)
		require.Equal(t, []string{"f.txt"}, staged)
	})
}

func TestStageMissingFile(t *testing.T) {
	t.Parallel()

	WithDummyLinker(t, func(lkr *Linker, src *MemorySource) {
		err := lkr.Stage("missing.txt")
		require.True(t, ie.IsNoSuchFileError(err))

		staged, err := lkr.Staged()
		require.Nil(t, err)
		require.Empty(t, staged)
	})
}

func TestStageBadPath(t *testing.T) {
	t.Parallel()

	WithDummyLinker(t, func(lkr *Linker, src *MemorySource) {
		for _, path := range []string{"", ".", "..", "../f.txt", "/etc/passwd"} {
			require.True(t, ie.IsBadPath(lkr.Stage(path)), path)
		}
	})
}

func TestUnstage(t *testing.T) {
	t.Parallel()

	WithDummyLinker(t, func(lkr *Linker, src *MemorySource) {
		require.Equal(t, ie.ErrNotStaged, lkr.Unstage("a"))

		for _, path := range []string{"a", "b", "c"} {
			MustStage(t, lkr, src, path, path)
		}

		require.Nil(t, lkr.Unstage("b"))
		require.Equal(t, ie.ErrNotStaged, lkr.Unstage("b"))

		staged, err := lkr.Staged()
		require.Nil(t, err)
		require.Equal(t, []string{"a", "c"}, staged)

		// Unstaging works even if the file is gone meanwhile.
		src.Remove("a")
		require.Nil(t, lkr.Unstage("a"))

		staged, err = lkr.Staged()
		require.Nil(t, err)
		require.Equal(t, []string{"c"}, staged)
	})
}

func TestStagingIsIdempotent(t *testing.T) {
	t.Parallel()

	WithDummyLinker(t, func(lkr *Linker, src *MemorySource) {
		MustStage(t, lkr, src, "f.txt", "hello")
		before, err := lkr.Staged()
		require.Nil(t, err)

		for i := 0; i < 3; i++ {
			require.Equal(t, ie.ErrAlreadyStaged, lkr.Stage("f.txt"))
		}

		after, err := lkr.Staged()
		require.Nil(t, err)
		require.Equal(t, before, after)
	})
}

func TestStageRejectsInvalidUTF8(t *testing.T) {
	t.Parallel()

	WithDummyLinker(t, func(lkr *Linker, src *MemorySource) {
		src.Set("a\xff.txt", []byte("x"))
		err := lkr.Stage("a\xff.txt")
		require.True(t, ie.IsBadPath(err))

		err = lkr.Unstage("a\xff.txt")
		require.True(t, ie.IsBadPath(err))

		staged, err := lkr.Staged()
		require.Nil(t, err)
		require.Empty(t, staged)

		// Nothing got stuck; valid paths work as before.
		MustStage(t, lkr, src, "b.txt", "b")
		_, err = lkr.MakeSnapshot("ok")
		require.Nil(t, err)
	})
}
