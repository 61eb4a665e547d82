// Package errors contains the error taxonomy of the version-control model.
// Every error in here is recoverable: the operation that returned it did
// not modify any state. All Is* helpers look through errors wrapped with
// github.com/pkg/errors.
package errors

import (
	"errors"
	"fmt"

	e "github.com/pkg/errors"
)

var (
	// ErrAlreadyStaged is returned when staging a path that is already staged.
	ErrAlreadyStaged = errors.New("path is already staged")
	// ErrNotStaged is returned when unstaging a path that is not staged.
	ErrNotStaged = errors.New("path is not staged")
	// ErrNothingToSnapshot is returned when snapshotting an empty staging area.
	ErrNothingToSnapshot = errors.New("nothing to snapshot: staging area is empty")
	// ErrAlreadyInitialized is returned by init on an existing repository.
	ErrAlreadyInitialized = errors.New("repository is already initialized")
	// ErrNotInitialized is returned when operating on an uninitialized repository.
	ErrNotInitialized = errors.New("repository is not initialized")
	// ErrAmbiguousRev is returned when a short id matches several snapshots.
	ErrAmbiguousRev = errors.New("ambiguous revision: more than one snapshot matches")
	// ErrBadMessage is returned for snapshot messages that are not valid UTF-8.
	ErrBadMessage = errors.New("snapshot message is not valid UTF-8")
)

// ErrBranchExists is returned when creating a branch that is already there.
type ErrBranchExists string

func (err ErrBranchExists) Error() string {
	return fmt.Sprintf("branch `%s` already exists", string(err))
}

// IsErrBranchExists checks if `err` is a ErrBranchExists.
func IsErrBranchExists(err error) bool {
	_, ok := e.Cause(err).(ErrBranchExists)
	return ok
}

// ErrNoSuchBranch is returned when a branch name is unknown.
type ErrNoSuchBranch string

func (err ErrNoSuchBranch) Error() string {
	return fmt.Sprintf("no branch named `%s`", string(err))
}

// IsErrNoSuchBranch checks if `err` is a ErrNoSuchBranch.
func IsErrNoSuchBranch(err error) bool {
	_, ok := e.Cause(err).(ErrNoSuchBranch)
	return ok
}

// ErrBadBranchName is returned for names that cannot be used as branch.
type ErrBadBranchName string

func (err ErrBadBranchName) Error() string {
	return fmt.Sprintf("invalid branch name: `%s`", string(err))
}

// IsErrBadBranchName checks if `err` is a ErrBadBranchName.
func IsErrBadBranchName(err error) bool {
	_, ok := e.Cause(err).(ErrBadBranchName)
	return ok
}

// ErrNoSuchSnapshot is returned when a revision could not be resolved.
type ErrNoSuchSnapshot string

func (err ErrNoSuchSnapshot) Error() string {
	return fmt.Sprintf("no snapshot matches `%s`", string(err))
}

// IsErrNoSuchSnapshot checks if `err` is a ErrNoSuchSnapshot.
func IsErrNoSuchSnapshot(err error) bool {
	_, ok := e.Cause(err).(ErrNoSuchSnapshot)
	return ok
}

//////////////

type errNoSuchFile struct {
	path string
}

func (err *errNoSuchFile) Error() string {
	return "no such file: " + err.path
}

// NoSuchFile creates a new error that reports `path` as missing.
func NoSuchFile(path string) error {
	return &errNoSuchFile{path}
}

// IsNoSuchFileError asserts that `err` means that the file could not be found.
func IsNoSuchFileError(err error) bool {
	_, ok := e.Cause(err).(*errNoSuchFile)
	return ok
}

//////////////

type errBadPath struct {
	path   string
	reason string
}

func (err *errBadPath) Error() string {
	return fmt.Sprintf("path %q %s", err.path, err.reason)
}

// BadPath reports `path` as unusable (empty or escaping the worktree).
func BadPath(path string) error {
	return &errBadPath{path, "is not inside of the working tree"}
}

// BadPathEncoding reports `path` as unusable since it is not valid UTF-8.
func BadPathEncoding(path string) error {
	return &errBadPath{path, "is not valid UTF-8"}
}

// IsBadPath checks if `err` was created by BadPath.
func IsBadPath(err error) bool {
	_, ok := e.Cause(err).(*errBadPath)
	return ok
}

//////////////

// FileUnreadableError is returned when a staged file could not
// be hashed during snapshot creation.
type FileUnreadableError struct {
	Path  string
	Cause error
}

func (err *FileUnreadableError) Error() string {
	if err.Cause == nil {
		return fmt.Sprintf("cannot read staged file `%s`", err.Path)
	}

	return fmt.Sprintf("cannot read staged file `%s`: %v", err.Path, err.Cause)
}

// FileUnreadable creates a new FileUnreadableError.
func FileUnreadable(path string, cause error) error {
	return &FileUnreadableError{Path: path, Cause: cause}
}

// IsFileUnreadable checks if `err` is a *FileUnreadableError.
func IsFileUnreadable(err error) bool {
	_, ok := e.Cause(err).(*FileUnreadableError)
	return ok
}
