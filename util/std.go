package util

import (
	"io"
	"os"
	"path/filepath"

	e "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Clamp limits x to the range [lo, hi]
func Clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}

	if x > hi {
		return hi
	}

	return x
}

// Closer closes c. If that fails, it will log the error.
// The intended usage is for convinient defer calls only!
// It gives only little knowledge about where the error is,
// but it's slightly better than a bare defer xyz.Close()
func Closer(c io.Closer) {
	if err := c.Close(); err != nil {
		log.Errorf("Error on close `%v`: %v", c, err)
	}
}

// CopyFile copies the regular file at `src` to `dst`, creating
// parent directories of `dst` as needed. The copy is synced to disk.
func CopyFile(src, dst string) error {
	srcFd, err := os.Open(src)
	if err != nil {
		return err
	}

	defer Closer(srcFd)

	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}

	dstFd, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFd, srcFd); err != nil {
		dstFd.Close()
		return e.Wrapf(err, "copy %s", src)
	}

	if err := dstFd.Sync(); err != nil {
		dstFd.Close()
		return err
	}

	return dstFd.Close()
}
