package server

import (
	"os"
	"path/filepath"
	"strings"
)

// safeJoin joins a client-supplied slash path onto root and rejects results
// that leave root, including through symlinks that already exist.
func safeJoin(root, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.Contains(rel, "\\") {
		return "", &ErrInvalidPath{Path: rel}
	}

	full := filepath.Join(root, filepath.FromSlash(rel))
	if !within(root, full) {
		return "", &ErrInvalidPath{Path: rel}
	}

	if resolved, err := filepath.EvalSymlinks(full); err == nil {
		resolvedRoot, err := filepath.EvalSymlinks(root)
		if err != nil || !within(resolvedRoot, resolved) {
			return "", &ErrInvalidPath{Path: rel}
		}
	}
	return full, nil
}

// within reports whether path is root or below it
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// sanitizeFilename keeps the last element of an uploaded file name and
// rejects names that are empty or hidden.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsRune(name, os.PathSeparator) {
		return ""
	}
	return name
}
