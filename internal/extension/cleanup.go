package extension

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// StaleSketchDirs lists the sketch folder parents earlier commands left in
// tempDir (os.TempDir when empty).
func StaleSketchDirs(tempDir string) ([]string, error) {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	matches, err := filepath.Glob(filepath.Join(tempDir, TempDirPattern))
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, m := range matches {
		if info, err := os.Lstat(m); err == nil && info.IsDir() {
			dirs = append(dirs, m)
		}
	}
	return dirs, nil
}

// RemoveSketchDirs deletes the given folders, continuing past failures.
func RemoveSketchDirs(dirs []string) error {
	var errs []error
	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", d, err))
		}
	}
	return errors.Join(errs...)
}
