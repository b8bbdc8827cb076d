//go:build linux || darwin || freebsd

package fs

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isStorageErrno(err error) bool {
	return errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.EROFS) || errors.Is(err, unix.EDQUOT)
}
