package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/report-review/internal/types"
)

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"研发部/张三.md":      "a",
		"研发部/李四主任.docx":  "b",
		"产品部/王五.TXT":     "c",
		"产品部/notes.pdf":  "ignored",
		"根目录总结.markdown": "d",
		"研发部/子组/赵六.txt":  "e",
		"研发部/image.png":  "ignored",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	found, err := Discover(root)
	require.NoError(t, err)

	var rels []string
	for _, f := range found {
		rels = append(rels, f.RelPath)
		assert.True(t, filepath.IsAbs(f.Path))
	}
	assert.Equal(t, []string{
		"产品部/王五.TXT",
		"根目录总结.markdown",
		"研发部/子组/赵六.txt",
		"研发部/张三.md",
		"研发部/李四主任.docx",
	}, rels)

	byRel := map[string]types.SourceFile{}
	for _, f := range found {
		byRel[f.RelPath] = f
	}
	assert.Equal(t, types.FileTypeText, byRel["产品部/王五.TXT"].Type)
	assert.Equal(t, types.FileTypeDocument, byRel["研发部/李四主任.docx"].Type)
	assert.Equal(t, types.FileTypeMarkdown, byRel["根目录总结.markdown"].Type)
}

func TestDiscover_Deterministic(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"c.md", "a.md", "b.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}

	first, err := Discover(root)
	require.NoError(t, err)
	second, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "a.md", first[0].RelPath)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDiscover_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := Discover(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
