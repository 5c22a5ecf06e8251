package prompts

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the prompt definition file inside each role directory
const FileName = "prompt.yaml"

// Source loads the prompt pair for a role
type Source interface {
	Load(role Role) (Prompt, error)
}

// FileSource loads <Dir>/<role>/prompt.yaml
type FileSource struct {
	Dir string
}

// Path returns the definition file for role
func (s FileSource) Path(role Role) string {
	return filepath.Join(s.Dir, string(role), FileName)
}

// Load reads and parses the definition for role
func (s FileSource) Load(role Role) (Prompt, error) {
	path := s.Path(role)
	data, err := os.ReadFile(path)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to read prompt file %s: %w", path, err)
	}

	prompt, err := ParseYAML(data)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to parse prompt file %s: %w", path, err)
	}
	return prompt, nil
}

// ParseYAML decodes a prompt definition. Unknown keys are rejected so a
// misspelled key does not silently drop half of the pair.
func ParseYAML(data []byte) (Prompt, error) {
	var prompt Prompt
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&prompt); err != nil {
		return Prompt{}, err
	}
	if err := prompt.Validate(); err != nil {
		return Prompt{}, err
	}
	return prompt, nil
}
