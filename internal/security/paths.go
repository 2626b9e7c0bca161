// Package security guards the file names the dashboard and exporter accept
// from users and recordings.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned when a path resolves outside its root.
var ErrOutsideDirectory = errors.New("path escapes directory")

// ValidatePathWithinDirectory checks that filePath resolves inside dir.
// Symlinks are resolved on both sides, and for paths that do not exist yet
// on the nearest existing ancestor, so a link inside dir cannot be used to
// escape it.
func ValidatePathWithinDirectory(filePath, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}
	root, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("resolve directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(root, canonical(absPath))
	if err != nil {
		return fmt.Errorf("%s: %w", filePath, ErrOutsideDirectory)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%s escapes %s: %w", filePath, dir, ErrOutsideDirectory)
	}
	return nil
}

// canonical resolves symlinks in absPath, falling back to the closest
// existing ancestor when the path itself does not exist.
func canonical(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	for dir := filepath.Dir(absPath); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, absPath)
			return filepath.Join(resolved, rest)
		}
		if filepath.Dir(dir) == dir {
			return absPath
		}
	}
}

// ResolveArtifact maps a user-supplied artifact name to a regular file inside
// dir. Only bare names with the given extension are accepted.
func ResolveArtifact(dir, name, ext string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	if !strings.EqualFold(filepath.Ext(name), ext) {
		return "", fmt.Errorf("artifact %q: want %s extension", name, ext)
	}
	path := filepath.Join(dir, name)
	if err := ValidatePathWithinDirectory(path, dir); err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("artifact %q is not a regular file", name)
	}
	return path, nil
}

// SanitizeFilename makes a safe file name from an arbitrary string, such as
// a recording base name embedded in an artifact name or a download header.
// Runs of characters other than ASCII letters, digits, dot, underscore and
// dash become a single underscore; the result is capped at 128 bytes.
func SanitizeFilename(s string) string {
	const maxLen = 128

	var b strings.Builder
	pending := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		if isFilenameRune(r) {
			if pending {
				b.WriteByte('_')
				pending = false
			}
			b.WriteRune(r)
			continue
		}
		pending = b.Len() > 0
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

func isFilenameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	}
	return false
}
