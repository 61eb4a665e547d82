// Package filelock implements helper functions for using a `lock` file
// for synchronising access to file system resources between processes.
//
// lockfile considers a lock owned by the current pid as free, so locks
// taken by this process are additionally tracked in memory. This makes a
// second Acquire of the same path fail, even from within one process.
package filelock

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/nightlyone/lockfile"
)

var (
	// ErrTimeout is returned by Acquire when the lock stayed busy.
	ErrTimeout = errors.New("timeout while waiting for lock")
)

const retryInterval = 50 * time.Millisecond

var (
	heldMu sync.Mutex
	held   = make(map[string]struct{})
)

func newLock(lockPath string) (lockfile.Lockfile, error) {
	// lockfile insists on absolute paths.
	absPath, err := filepath.Abs(lockPath)
	if err != nil {
		return "", err
	}

	return lockfile.New(absPath)
}

func tryLock(lock lockfile.Lockfile) error {
	heldMu.Lock()
	defer heldMu.Unlock()

	if _, ok := held[string(lock)]; ok {
		return lockfile.ErrBusy
	}

	if err := lock.TryLock(); err != nil {
		return err
	}

	held[string(lock)] = struct{}{}
	return nil
}

// Acquire tries to lock the lock file at `lockPath`.
// If it is already locked it will re-try until `timeout` elapsed.
// A zero timeout means to try exactly once.
func Acquire(lockPath string, timeout time.Duration) error {
	lock, err := newLock(lockPath)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		err := tryLock(lock)
		if err == nil {
			return nil
		}

		if !isBusy(err) {
			return err
		}

		if !time.Now().Before(deadline) {
			return ErrTimeout
		}

		time.Sleep(retryInterval)
	}
}

func isBusy(err error) bool {
	// NOTE: A lock file owned by a dead process is cleaned up by lockfile itself.
	return err == lockfile.ErrBusy || err == lockfile.ErrNotExist
}

// Release will remove the lockfile.
func Release(lockPath string) error {
	lock, err := newLock(lockPath)
	if err != nil {
		return err
	}

	heldMu.Lock()
	defer heldMu.Unlock()

	if err := lock.Unlock(); err != nil {
		return err
	}

	delete(held, string(lock))
	return nil
}
