package filelock

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "lock")

	require.Nil(t, Acquire(lockPath, 0))
	require.Nil(t, Release(lockPath))
	require.Nil(t, Acquire(lockPath, 100*time.Millisecond))
	require.Nil(t, Release(lockPath))
}

func TestAcquireCreatesLockFile(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "lock")

	require.Nil(t, Acquire(lockPath, time.Second))
	_, err := os.Stat(lockPath)
	require.Nil(t, err)

	require.Nil(t, Release(lockPath))
	_, err = os.Stat(lockPath)
	require.True(t, os.IsNotExist(err))
}

func TestAcquireTwiceInSameProcess(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "lock")

	require.Nil(t, Acquire(lockPath, 0))
	require.Equal(t, ErrTimeout, Acquire(lockPath, 0))

	// Same file, different spelling.
	require.Equal(t, ErrTimeout, Acquire(filepath.Join(dir, ".", "lock"), 0))

	require.Nil(t, Release(lockPath))
	require.Nil(t, Acquire(lockPath, 0))
	require.Nil(t, Release(lockPath))
}

func TestAcquireWaitsForRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "lock")
	require.Nil(t, Acquire(lockPath, 0))

	go func() {
		time.Sleep(100 * time.Millisecond)
		Release(lockPath)
	}()

	require.Nil(t, Acquire(lockPath, 5*time.Second))
	require.Nil(t, Release(lockPath))
}

func TestReleaseForeignLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "lock")

	// pid 1 is alive, but not us.
	require.Nil(t, os.WriteFile(lockPath, []byte("1\n"), 0600))
	require.Equal(t, ErrTimeout, Acquire(lockPath, 0))
	require.NotNil(t, Release(lockPath))
}
