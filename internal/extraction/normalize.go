package extraction

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jonathan/report-review/internal/types"
)

type stringField struct {
	key string
	get func(*types.PersonRecord) *string
}

type listField struct {
	key string
	get func(*types.PersonRecord) *[]string
}

var stringFields = []stringField{
	{"name", func(r *types.PersonRecord) *string { return &r.Name }},
	{"department", func(r *types.PersonRecord) *string { return &r.Department }},
	{"position", func(r *types.PersonRecord) *string { return &r.Position }},
	{"title", func(r *types.PersonRecord) *string { return &r.Title }},
	{"entry_date", func(r *types.PersonRecord) *string { return &r.EntryDate }},
	{"workload", func(r *types.PersonRecord) *string { return &r.Workload }},
	{"work_scope", func(r *types.PersonRecord) *string { return &r.WorkScope }},
	{"source_path", func(r *types.PersonRecord) *string { return &r.SourcePath }},
}

var listFields = []listField{
	{"key_results", func(r *types.PersonRecord) *[]string { return &r.KeyResults }},
	{"capability_profile", func(r *types.PersonRecord) *[]string { return &r.CapabilityProfile }},
	{"methodologies", func(r *types.PersonRecord) *[]string { return &r.Methodologies }},
	{"strengths", func(r *types.PersonRecord) *[]string { return &r.Strengths }},
	{"improvements", func(r *types.PersonRecord) *[]string { return &r.Improvements }},
	{"self_review", func(r *types.PersonRecord) *[]string { return &r.SelfReview }},
	{"issues", func(r *types.PersonRecord) *[]string { return &r.Issues }},
	{"suggestions", func(r *types.PersonRecord) *[]string { return &r.Suggestions }},
	{"support_to_departments", func(r *types.PersonRecord) *[]string { return &r.SupportToDepartments }},
	{"risk_flags", func(r *types.PersonRecord) *[]string { return &r.RiskFlags }},
	{"tags", func(r *types.PersonRecord) *[]string { return &r.Tags }},
}

// Normalize coerces a decoded model object into the fixed record schema.
// Unrecognized keys are dropped. String fields accept strings only; list
// fields accept a string (as a singleton) or an array whose scalars are
// formatted and whose nested values become compact JSON. Anything else
// falls back to the field default. The error key is never read, so a model
// cannot mark its own record as degraded.
//
// Normalize is a fixed point: Normalize(ToMap(r), r.Role, p) equals r for any
// record it produced.
func Normalize(raw map[string]any, prior types.Role, precedence RolePrecedence) types.PersonRecord {
	record := types.NewPersonRecord("", prior)

	for _, f := range stringFields {
		if s, ok := raw[f.key].(string); ok {
			*f.get(&record) = strings.TrimSpace(s)
		}
	}

	for _, f := range listFields {
		*f.get(&record) = normalizeList(raw[f.key])
	}

	record.Role = precedence.resolve(raw["role"], prior)
	return record
}

// ToMap renders a record as the generic object shape Normalize consumes
func ToMap(record types.PersonRecord) map[string]any {
	out := make(map[string]any, len(stringFields)+len(listFields)+2)
	for _, f := range stringFields {
		out[f.key] = *f.get(&record)
	}
	for _, f := range listFields {
		items := *f.get(&record)
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = item
		}
		out[f.key] = list
	}
	out["role"] = string(record.Role)
	if record.Error != "" {
		out["error"] = record.Error
	}
	return out
}

func normalizeList(value any) []string {
	out := []string{}
	switch v := value.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range v {
			if s, ok := listItem(item); ok {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func listItem(item any) (string, bool) {
	var s string
	switch v := item.(type) {
	case nil:
		return "", false
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case bool:
		s = strconv.FormatBool(v)
	default:
		encoded, err := compactJSON(v)
		if err != nil {
			return "", false
		}
		s = encoded
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func compactJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
