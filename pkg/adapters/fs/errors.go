package fs

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

// classify maps an OS error onto the store's error taxonomy.
func classify(op, target string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s %s: %w", op, target, core.ErrNotFound)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%s %s: %w", op, target, core.ErrAlreadyExists)
	case errors.Is(err, fs.ErrPermission) || isStorageErrno(err):
		return fmt.Errorf("%s %s: %w: %w", op, target, core.ErrStorage, err)
	}
	return fmt.Errorf("%s %s: %w", op, target, err)
}
