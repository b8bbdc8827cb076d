//go:build !linux && !darwin && !freebsd

package fs

func isStorageErrno(error) bool {
	return false
}
