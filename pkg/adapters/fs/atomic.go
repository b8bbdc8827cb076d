package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// TempFilePrefix is the prefix used for temporary atomic write files.
	// Listings and the watcher skip anything carrying it.
	TempFilePrefix = "employee-tmp-"
)

// stageTemp writes data to a synced temp file next to filename and returns
// its path. The caller owns removal.
func stageTemp(filename string, data []byte, perm os.FileMode) (string, error) {
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), TempFilePrefix+"*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(name, perm); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("failed to chmod temp file: %w", err)
	}
	return name, nil
}

// writeFileAtomic replaces filename with data by renaming a temp file over it.
// Readers see either the old or the new content, never a partial file.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := stageTemp(filename, data, perm)
	if err != nil {
		return err
	}
	defer os.Remove(tmp) // no-op after a successful rename

	if err := os.Rename(tmp, filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}

// createFileExclusive publishes data at filename only if nothing is there.
// The content is complete before the name becomes visible: the temp file is
// hard-linked into place, and the link fails with fs.ErrExist on collision.
func createFileExclusive(filename string, data []byte, perm os.FileMode) error {
	tmp, err := stageTemp(filename, data, perm)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	err = os.Link(tmp, filename)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return err
	}

	// Filesystems without hard links fall back to an exclusive open.
	f, openErr := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if openErr != nil {
		return openErr
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", filename, err)
	}
	return f.Close()
}

// linkRename moves src to dst without replacing an existing dst.
func linkRename(src, dst string) error {
	if err := os.Link(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		// Roll back so the document is never visible twice.
		os.Remove(dst)
		return err
	}
	return nil
}
