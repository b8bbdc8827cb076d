package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

// FindRoot looks upwards from startDir for a vault. Indicators are the system
// directory or a Needs_Action stage directory. It returns the absolute path
// of the first match.
func FindRoot(startDir, systemDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for dir := abs; ; {
		if hasDir(dir, systemDir) || hasDir(dir, core.StageNeedsAction.Dir()) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("no vault found above %s", abs)
}

func hasDir(dir, name string) bool {
	if name == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.IsDir()
}
