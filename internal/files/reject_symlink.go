package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RejectSymlinkPath returns an error if path or its parent directory is a
// symlink or reparse point. Ancestors above the parent are not checked.
func RejectSymlinkPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	for _, p := range []string{filepath.Dir(abs), abs} {
		if err := rejectLink(abs, p); err != nil {
			return err
		}
	}
	return nil
}

// RejectSymlinkWithin returns an error if any element of path below root is
// a symlink or reparse point. root itself may be a link.
func RejectSymlinkWithin(root, path string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("path %s is outside %s", path, root)
	}
	if rel == "." {
		return nil
	}
	current := absRoot
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		current = filepath.Join(current, part)
		if err := rejectLink(abs, current); err != nil {
			return err
		}
	}
	return nil
}

// rejectLink checks a single element. A missing element ends the walk
// without error since nothing below it can exist either.
func rejectLink(path, current string) error {
	info, err := os.Lstat(current)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to access path: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to write through symlink: %s (link at %s)", path, current)
	}
	if isReparse, err := isReparsePoint(current); err != nil {
		return fmt.Errorf("failed to check reparse point: %w", err)
	} else if isReparse {
		return fmt.Errorf("refusing to write through reparse point: %s (at %s)", path, current)
	}
	return nil
}
