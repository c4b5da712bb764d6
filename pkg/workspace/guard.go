// Package workspace keeps destructive file operations inside a root
// directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard enforces the boundary of a root directory on file paths.
type Guard struct {
	root string // absolute, symlinks evaluated
}

// NewGuard creates a guard rooted at dir. The directory must exist; its path
// is made absolute and symlinks are evaluated.
func NewGuard(dir string) (*Guard, error) {
	if dir == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory: %w", err)
	}

	evalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate workspace directory symlinks: %w", err)
	}

	return &Guard{root: evalPath}, nil
}

// Root returns the absolute path of the workspace directory.
func (g *Guard) Root() string {
	return g.root
}

// ResolvePath converts a relative or absolute path to an absolute one.
// Relative paths are joined to the root and a leading ~ expands to the home
// directory. Symlinks are evaluated as far as the path exists.
func (g *Guard) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	expanded := path
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand ~: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}

	abs := filepath.Clean(expanded)
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(g.root, abs)
	}
	return resolveSymlinks(abs), nil
}

// Contains reports whether absPath is the root or below it.
func (g *Guard) Contains(absPath string) bool {
	p := resolveSymlinks(absPath)
	return p == g.root || strings.HasPrefix(p+string(filepath.Separator), g.root+string(filepath.Separator))
}

// ValidateRemoval returns the resolved form of path when it lies strictly
// below the root. The root itself is never removable.
func (g *Guard) ValidateRemoval(path string) (string, error) {
	resolved, err := g.ResolvePath(path)
	if err != nil {
		return "", err
	}
	if resolved == g.root {
		return "", fmt.Errorf("refusing to remove workspace root %s", g.root)
	}
	if !g.Contains(resolved) {
		return "", fmt.Errorf("path '%s' is outside workspace %s", path, g.root)
	}
	return resolved, nil
}

// RemoveAll removes path and everything below it after validating it. It
// reports false without error when path does not exist.
func (g *Guard) RemoveAll(path string) (bool, error) {
	resolved, err := g.ValidateRemoval(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Lstat(resolved); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.RemoveAll(resolved); err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return true, nil
}

// resolveSymlinks evaluates symlinks in path. For paths that do not exist it
// resolves the deepest existing ancestor and re-appends the rest.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	var rest []string
	current := path
	for {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			for i := len(rest) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, rest[i])
			}
			return resolved
		}
		dir := filepath.Dir(current)
		if dir == current {
			return path
		}
		rest = append(rest, filepath.Base(current))
		current = dir
	}
}
