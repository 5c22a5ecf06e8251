// Package types provides type definitions for structured data used throughout the report review system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"path"
	"strings"
)

// FileType classifies a discovered input file
type FileType string

const (
	// FileTypeText is a plain text report (.txt)
	FileTypeText FileType = "text"
	// FileTypeMarkdown is a markdown report (.md, .markdown)
	FileTypeMarkdown FileType = "markdown"
	// FileTypeDocument is a word-processor XML container (.docx)
	FileTypeDocument FileType = "document"
)

// UncategorizedDepartment is used for files placed directly under the input root
const UncategorizedDepartment = "未分类"

// SourceFile is a report discovered under the input root
type SourceFile struct {
	Path    string   `json:"path"`     // Absolute path on disk
	RelPath string   `json:"rel_path"` // Slash-separated path relative to the input root
	Type    FileType `json:"type"`
}

// Title returns the display name of the file: its base name without extension
func (f SourceFile) Title() string {
	base := path.Base(f.RelPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Department returns the first folder under the input root, or
// UncategorizedDepartment for files placed at the root itself.
func (f SourceFile) Department() string {
	parts := strings.Split(f.RelPath, "/")
	if len(parts) < 2 || parts[0] == "" {
		return UncategorizedDepartment
	}
	return parts[0]
}

// ExtractedContent is the decoded text of one SourceFile
type ExtractedContent struct {
	Text   string
	Source SourceFile
}
