package ingestion

import (
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/report-review/internal/types"
)

// Extractor reads SourceFiles into raw text
type Extractor struct{}

// NewExtractor creates a content extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads a single source file and returns its decoded text
func (e *Extractor) Extract(file types.SourceFile) (*types.ExtractedContent, error) {
	return Extract(file)
}

// Extract reads a single source file and returns its decoded text.
// It fails with *UnreadableFileError when the content cannot be decoded,
// and never returns empty text for a file that has byte content.
func Extract(file types.SourceFile) (*types.ExtractedContent, error) {
	var text string
	switch file.Type {
	case types.FileTypeDocument:
		var err error
		text, err = readDOCX(file.Path)
		if err != nil {
			return nil, &UnreadableFileError{Path: file.RelPath, Reason: "cannot parse document", Cause: err}
		}
		if strings.TrimSpace(text) == "" {
			return nil, &UnreadableFileError{Path: file.RelPath, Reason: "document has no text content"}
		}

	case types.FileTypeText, types.FileTypeMarkdown:
		data, err := os.ReadFile(file.Path)
		if err != nil {
			return nil, &UnreadableFileError{Path: file.RelPath, Reason: "cannot read file", Cause: err}
		}
		decoded, _, ok := DecodeText(data)
		if !ok {
			return nil, &UnreadableFileError{Path: file.RelPath, Reason: "no candidate encoding could decode the file"}
		}
		if len(data) > 0 && decoded == "" {
			return nil, &UnreadableFileError{Path: file.RelPath, Reason: "decoded text is empty"}
		}
		text = decoded

	default:
		return nil, &UnreadableFileError{Path: file.RelPath, Reason: fmt.Sprintf("unsupported file type %q", file.Type)}
	}

	return &types.ExtractedContent{Text: text, Source: file}, nil
}
