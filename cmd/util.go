package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	homedir "github.com/mitchellh/go-homedir"
	e "github.com/pkg/errors"
	ie "github.com/sahib/snap/catfs/errors"
	"github.com/sahib/snap/repo"
	snaplog "github.com/sahib/snap/util/log"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// ExitCode is an error that maps the error interface to a specific error
// message and a unix exit code
type ExitCode struct {
	Code    int
	Message string
}

func (err ExitCode) Error() string {
	return err.Message
}

func isUserError(err error) bool {
	switch e.Cause(err) {
	case ie.ErrAlreadyStaged,
		ie.ErrNotStaged,
		ie.ErrNothingToSnapshot,
		ie.ErrAlreadyInitialized,
		ie.ErrNotInitialized,
		ie.ErrAmbiguousRev,
		ie.ErrBadMessage:
		return true
	}

	return ie.IsNoSuchFileError(err) ||
		ie.IsBadPath(err) ||
		ie.IsFileUnreadable(err) ||
		ie.IsErrBranchExists(err) ||
		ie.IsErrNoSuchBranch(err) ||
		ie.IsErrBadBranchName(err) ||
		ie.IsErrNoSuchSnapshot(err)
}

// toExitCode wraps `err` into an ExitCode matching its category.
func toExitCode(what string, err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(ExitCode); ok {
		return err
	}

	code := UnknownError
	switch {
	case e.Cause(err) == repo.ErrRepoLocked:
		code = RepoLocked
	case isUserError(err):
		code = UserError
	}

	return ExitCode{code, fmt.Sprintf("%s: %v", what, err)}
}

func mustAbsPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to expand home dir: %v\n", err)
		os.Exit(BadArgs)
	}

	absPath, err := filepath.Abs(expanded)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get absolute repo path: %v\n", err)
		os.Exit(BadArgs)
	}

	return absPath
}

// guessRepoFolder tries to find the repository path
// by using --path or by searching upwards from the working directory.
func guessRepoFolder(ctx *cli.Context) string {
	if argPath := ctx.GlobalString("path"); argPath != "" {
		return mustAbsPath(argPath)
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Warningf("failed to get current working dir: %v", err)
		return mustAbsPath(".")
	}

	if folder := repo.FindRepo(wd); folder != "" {
		return folder
	}

	return wd
}

// pathBase returns the folder relative paths on the command line refer to.
// With an explicit --path this is the working tree root.
func pathBase(ctx *cli.Context, rp *repo.Repository) string {
	if ctx.GlobalString("path") != "" {
		return rp.BaseFolder
	}

	wd, err := os.Getwd()
	if err != nil {
		return rp.BaseFolder
	}

	return wd
}

func applyRepoSettings(ctx *cli.Context, rp *repo.Repository) {
	if !rp.Config.Bool("ui.color") {
		color.NoColor = true
	}

	if !ctx.GlobalIsSet("log-level") {
		log.SetLevel(snaplog.ParseLevel(rp.Config.String("log.level"), log.WarnLevel))
	}
}

type cmdHandlerWithRepo func(ctx *cli.Context, rp *repo.Repository) error

// withRepo opens (and locks) the repository for the duration of `handler`.
func withRepo(handler cmdHandlerWithRepo) cli.ActionFunc {
	return func(ctx *cli.Context) (err error) {
		folder := guessRepoFolder(ctx)
		log.Debugf("using repository at %s", folder)

		rp, err := repo.Open(folder)
		if err != nil {
			return toExitCode("open", err)
		}

		defer func() {
			if closeErr := rp.Close(); closeErr != nil && err == nil {
				err = toExitCode("close", closeErr)
			}
		}()

		applyRepoSettings(ctx, rp)
		return handler(ctx, rp)
	}
}

type checkFunc func(ctx *cli.Context) int

func withArgCheck(checker checkFunc, handler cli.ActionFunc) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if code := checker(ctx); code != Success {
			return ExitCode{code, "bad number of arguments"}
		}

		return handler(ctx)
	}
}

func needAtLeast(min int) checkFunc {
	return func(ctx *cli.Context) int {
		if ctx.NArg() < min {
			if min == 1 {
				log.Warningf("Need at least %d argument.", min)
			} else {
				log.Warningf("Need at least %d arguments.", min)
			}

			if err := cli.ShowCommandHelp(ctx, ctx.Command.Name); err != nil {
				log.Warningf("Failed to display --help: %v", err)
			}

			return BadArgs
		}

		return Success
	}
}
