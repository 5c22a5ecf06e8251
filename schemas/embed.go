// Package schemas embeds the JSON Schemas of the files a run writes.
package schemas

import _ "embed"

// PersonRecord is the schema of one per_report/*.json file
//
//go:embed person_record.schema.json
var PersonRecord []byte

// IndividualSummaries is the schema of individual_summaries.json.
// Its items reference PersonRecord by $id.
//
//go:embed individual_summaries.schema.json
var IndividualSummaries []byte
