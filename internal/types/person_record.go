package types

import "strings"

// Role is the employment category of a person
type Role string

const (
	// RoleCadre marks leadership and management staff
	RoleCadre Role = "cadre"
	// RoleEmployee marks regular staff
	RoleEmployee Role = "employee"
)

// ParseRole maps a loosely formatted role value onto a known Role.
// The second return value is false when the value is not recognized.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleCadre:
		return RoleCadre, true
	case RoleEmployee:
		return RoleEmployee, true
	default:
		return "", false
	}
}

// PersonRecord is the normalized, fixed-schema extraction of one report.
// Every field is always serialized; list fields are never null.
type PersonRecord struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Role       Role   `json:"role"`
	Position   string `json:"position"`
	Title      string `json:"title"`
	EntryDate  string `json:"entry_date"`
	Workload   string `json:"workload"`
	WorkScope  string `json:"work_scope"`

	KeyResults           []string `json:"key_results"`
	CapabilityProfile    []string `json:"capability_profile"`
	Methodologies        []string `json:"methodologies"`
	Strengths            []string `json:"strengths"`
	Improvements         []string `json:"improvements"`
	SelfReview           []string `json:"self_review"`
	Issues               []string `json:"issues"`
	Suggestions          []string `json:"suggestions"`
	SupportToDepartments []string `json:"support_to_departments"`
	RiskFlags            []string `json:"risk_flags"`
	Tags                 []string `json:"tags"`

	SourcePath string `json:"source_path"`

	// Error is set only on degraded records and explains why extraction failed
	Error string `json:"error,omitempty"`
}

// NewPersonRecord returns a record with every field at its schema default
func NewPersonRecord(sourcePath string, role Role) PersonRecord {
	return PersonRecord{
		Role:                 role,
		KeyResults:           []string{},
		CapabilityProfile:    []string{},
		Methodologies:        []string{},
		Strengths:            []string{},
		Improvements:         []string{},
		SelfReview:           []string{},
		Issues:               []string{},
		Suggestions:          []string{},
		SupportToDepartments: []string{},
		RiskFlags:            []string{},
		Tags:                 []string{},
		SourcePath:           sourcePath,
	}
}

// Degraded reports whether the record was produced by a failed extraction
func (r PersonRecord) Degraded() bool {
	return r.Error != ""
}
