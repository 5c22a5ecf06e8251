package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed templates/*/prompt.yaml
var templateFiles embed.FS

// Shipped returns the full-featured prompt definition file for role as
// written by WriteDefaults.
func Shipped(role Role) ([]byte, error) {
	data, err := templateFiles.ReadFile("templates/" + string(role) + "/" + FileName)
	if err != nil {
		return nil, fmt.Errorf("no shipped prompt for role %s: %w", role, err)
	}
	return data, nil
}

// WriteDefaults writes the shipped prompt definitions under dir so they can be
// customized. Existing files are kept unless overwrite is set. It returns the
// paths that were written.
func WriteDefaults(dir string, overwrite bool) ([]string, error) {
	target := FileSource{Dir: dir}
	var written []string

	for _, role := range Roles {
		data, err := Shipped(role)
		if err != nil {
			return written, err
		}

		path := target.Path(role)
		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				continue
			} else if !errors.Is(err, fs.ErrNotExist) {
				return written, fmt.Errorf("failed to stat %s: %w", path, err)
			}
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return written, fmt.Errorf("failed to create prompt directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}

	return written, nil
}
