package prompts

import "fmt"

const builtinIndividualSystem = `You extract facts from one employee's annual work report.
Respond ONLY with a single JSON object, no markdown and no commentary. Do not invent facts;
leave a field empty when the report does not mention it.

String fields: name, department, role ("cadre" for managers/leaders, otherwise "employee"),
position, title, entry_date, workload, work_scope.

List fields (arrays of strings): key_results, capability_profile, methodologies, strengths,
improvements, self_review, issues, suggestions, support_to_departments, risk_flags, tags.`

const builtinAggregateSystem = `You write an organization-level annual review from a set of structured
individual summaries. Use only facts present in the input. Summarize patterns at the team and
capability level, highlight achievements, common issues, risks and recommendations. Respond in
concise, well-structured markdown prose.`

// Builtin is the minimal prompt pair used whenever a custom definition is unusable.
// The user template is the raw report content or the serialized records.
type Builtin struct{}

// Load returns the built-in pair for role
func (Builtin) Load(role Role) (Prompt, error) {
	switch role {
	case RoleIndividual:
		return Prompt{System: builtinIndividualSystem, User: "{{.Content}}"}, nil
	case RoleAggregate:
		return Prompt{System: builtinAggregateSystem, User: "{{.People}}"}, nil
	default:
		return Prompt{}, fmt.Errorf("unknown prompt role: %s", role)
	}
}
