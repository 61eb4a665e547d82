package cmd

const (
	// Success is the same as EXIT_SUCCESS in C
	Success = iota

	// BadArgs passed to cli; not our fault.
	BadArgs

	// RepoLocked means another snap process holds the repository lock.
	RepoLocked

	// UserError is a refused operation (nothing staged, unknown branch...).
	// The repository was not modified.
	UserError

	// UnknownError is an uncategorized error, probably our fault.
	UnknownError
)
