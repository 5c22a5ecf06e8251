package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePromptFile(t *testing.T, dir string, role Role, content string) {
	t.Helper()
	path := FileSource{Dir: dir}.Path(role)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	writePromptFile(t, dir, RoleIndividual, "system: |\n  提炼要点\nuser: |\n  {{.Content}}\n")

	prompt, err := FileSource{Dir: dir}.Load(RoleIndividual)
	require.NoError(t, err)
	assert.Equal(t, "提炼要点\n", prompt.System)
	assert.Equal(t, "{{.Content}}\n", prompt.User)
}

func TestFileSource_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{name: "malformed yaml", content: "system: [unclosed\n", errText: "failed to parse"},
		{name: "unknown key", content: "system: s\nuser: u\nsytem: typo\n", errText: "failed to parse"},
		{name: "empty user", content: "system: s\nuser: \"\"\n", errText: "user template is empty"},
		{name: "empty file", content: "", errText: "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writePromptFile(t, dir, RoleAggregate, tt.content)

			_, err := FileSource{Dir: dir}.Load(RoleAggregate)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestFileSource_Missing(t *testing.T) {
	_, err := FileSource{Dir: t.TempDir()}.Load(RoleIndividual)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}
