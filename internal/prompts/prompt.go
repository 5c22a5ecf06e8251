// Package prompts resolves the system/user prompt pairs sent to the model.
// A prompt pair is loaded from a customizable source and falls back to a
// built-in minimal pair when the custom definition cannot be used.
package prompts

import (
	"fmt"
	"strings"
)

// Role identifies which call a prompt pair serves
type Role string

const (
	// RoleIndividual is the per-report extraction call
	RoleIndividual Role = "individual"
	// RoleAggregate is the organization review call
	RoleAggregate Role = "aggregate"
)

// Roles lists every prompt role in a stable order
var Roles = []Role{RoleIndividual, RoleAggregate}

// Prompt is a system message plus a user template with {{.Key}} placeholders
type Prompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Validate reports whether both halves of the pair are usable
func (p Prompt) Validate() error {
	if strings.TrimSpace(p.System) == "" {
		return fmt.Errorf("system prompt is empty")
	}
	if strings.TrimSpace(p.User) == "" {
		return fmt.Errorf("user template is empty")
	}
	return nil
}

// Apply fills placeholders in both halves of the pair
func (p Prompt) Apply(data map[string]string) Prompt {
	return Prompt{System: Format(p.System, data), User: Format(p.User, data)}
}

// Format replaces template placeholders in the form {{.Key}} with values from data.
// Unknown placeholders are left in place.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	// Single pass, so values containing placeholders are not expanded again
	return strings.NewReplacer(pairs...).Replace(template)
}
