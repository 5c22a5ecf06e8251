package extraction

import (
	"fmt"
	"strings"

	"github.com/jonathan/report-review/internal/types"
)

// cadreKeywords mark leadership positions in a report's display name
var cadreKeywords = []string{"干部", "领导", "经理", "主管", "总监", "部长", "书记", "主任", "处长", "科长"}

// DetectRole classifies a report by its display name, never its content
func DetectRole(displayName string) types.Role {
	for _, keyword := range cadreKeywords {
		if strings.Contains(displayName, keyword) {
			return types.RoleCadre
		}
	}
	return types.RoleEmployee
}

// roleHint renders a role for the prompt metadata block
func roleHint(role types.Role) string {
	if role == types.RoleCadre {
		return "干部/管理岗"
	}
	return "普通员工"
}

// RolePrecedence decides which role wins when the model names one
type RolePrecedence string

const (
	// PrecedenceModel keeps an explicit role from the model response
	PrecedenceModel RolePrecedence = "model"
	// PrecedenceHeuristic keeps the role detected from the display name
	PrecedenceHeuristic RolePrecedence = "heuristic"
)

// ParseRolePrecedence validates a precedence name; empty selects PrecedenceModel
func ParseRolePrecedence(value string) (RolePrecedence, error) {
	switch p := RolePrecedence(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return PrecedenceModel, nil
	case PrecedenceModel, PrecedenceHeuristic:
		return p, nil
	default:
		return "", fmt.Errorf("unknown role precedence %q (want %q or %q)", value, PrecedenceModel, PrecedenceHeuristic)
	}
}

func (p RolePrecedence) resolve(modelValue any, prior types.Role) types.Role {
	if p == PrecedenceHeuristic {
		return prior
	}
	if s, ok := modelValue.(string); ok {
		if role, ok := types.ParseRole(s); ok {
			return role
		}
	}
	return prior
}
