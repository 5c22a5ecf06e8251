package ingestion

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/report-review/internal/types"
)

// fileTypes maps supported extensions (lowercase) to their file type
var fileTypes = map[string]types.FileType{
	".txt":      types.FileTypeText,
	".md":       types.FileTypeMarkdown,
	".markdown": types.FileTypeMarkdown,
	".docx":     types.FileTypeDocument,
}

// DetectFileType returns the file type for a path, or false if the extension is not supported
func DetectFileType(path string) (types.FileType, bool) {
	ft, ok := fileTypes[strings.ToLower(filepath.Ext(path))]
	return ft, ok
}

// Discover walks root and returns every supported file in discovery order.
// Files with unsupported extensions are skipped silently.
func Discover(root string) ([]types.SourceFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input root: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("input root not found: %s", absRoot)
		}
		return nil, fmt.Errorf("failed to stat input root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input root is not a directory: %s", absRoot)
	}

	var files []types.SourceFile
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		ft, ok := DetectFileType(path)
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		files = append(files, types.SourceFile{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Type:    ft,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk input root: %w", err)
	}

	return files, nil
}
