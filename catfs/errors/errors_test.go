package errors

import (
	"io"
	"testing"

	e "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestIsHelpersSeeThroughWrapping(t *testing.T) {
	tcs := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"branch-exists", ErrBranchExists("dev"), IsErrBranchExists},
		{"no-such-branch", ErrNoSuchBranch("dev"), IsErrNoSuchBranch},
		{"bad-branch-name", ErrBadBranchName("a/b"), IsErrBadBranchName},
		{"no-such-snapshot", ErrNoSuchSnapshot("abc"), IsErrNoSuchSnapshot},
		{"no-such-file", NoSuchFile("f.txt"), IsNoSuchFileError},
		{"bad-path", BadPath("../x"), IsBadPath},
		{"bad-path-encoding", BadPathEncoding("a\xff"), IsBadPath},
		{"unreadable", FileUnreadable("f.txt", io.ErrUnexpectedEOF), IsFileUnreadable},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.True(t, tc.is(tc.err))
			require.True(t, tc.is(e.Wrap(tc.err, "context")))
			require.False(t, tc.is(io.EOF))
			require.NotEmpty(t, tc.err.Error())
		})
	}
}

func TestFileUnreadableMessage(t *testing.T) {
	err := FileUnreadable("f.txt", io.ErrUnexpectedEOF)
	require.Equal(t, "cannot read staged file `f.txt`: unexpected EOF", err.Error())

	err = FileUnreadable("f.txt", nil)
	require.Equal(t, "cannot read staged file `f.txt`", err.Error())
}

func TestBadPathMessage(t *testing.T) {
	require.Equal(t, "path \"../x\" is not inside of the working tree", BadPath("../x").Error())
	require.Equal(t, "path \"a\\xff.txt\" is not valid UTF-8", BadPathEncoding("a\xff.txt").Error())
}
