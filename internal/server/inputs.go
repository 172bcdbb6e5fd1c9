// ABOUTME: Confines submitted input paths to the configured input directory
// ABOUTME: Checks both the cleaned path and its symlink target
package server

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
)

var errOutsideInputDir = errors.New("path is outside the input directory")

// resolveInputRoot returns the absolute, symlink-free form of dir. An empty dir means the working directory.
func resolveInputRoot(dir string) string {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		log.Printf("Warning: cannot resolve input directory %q: %v", dir, err)
		return filepath.Clean(dir)
	}
	if target, err := filepath.EvalSymlinks(abs); err == nil {
		return target
	}
	return abs
}

// resolveInput maps a submitted path onto root. Relative paths are taken
// from root, and the result must stay inside root after following symlinks.
func resolveInput(root, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	if !within(root, path) {
		return "", errOutsideInputDir
	}

	target, err := filepath.EvalSymlinks(path)
	if errors.Is(err, os.ErrNotExist) {
		// The job fails at conversion like any other missing input
		return path, nil
	}
	if err != nil {
		return "", err
	}
	if !within(root, target) {
		return "", errOutsideInputDir
	}
	return target, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
