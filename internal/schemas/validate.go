// Package schemas validates run artifacts against JSON Schemas.
package schemas

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	schemafiles "github.com/jonathan/report-review/schemas"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

var (
	personRecordSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
		return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemafiles.PersonRecord))
	})
	summariesSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
		loader := gojsonschema.NewSchemaLoader()
		if err := loader.AddSchemas(gojsonschema.NewBytesLoader(schemafiles.PersonRecord)); err != nil {
			return nil, err
		}
		return loader.Compile(gojsonschema.NewBytesLoader(schemafiles.IndividualSummaries))
	})
)

// ValidatePersonRecord validates a record value (anything that marshals to a
// PersonRecord object) against the embedded schema.
func ValidatePersonRecord(record any) error {
	return validateEmbedded("person_record.schema.json", personRecordSchema, gojsonschema.NewGoLoader(record))
}

// ValidatePersonRecordJSON validates one per-report JSON document
func ValidatePersonRecordJSON(data []byte) error {
	return validateEmbedded("person_record.schema.json", personRecordSchema, gojsonschema.NewBytesLoader(data))
}

// ValidateSummariesJSON validates the combined individual_summaries.json document
func ValidateSummariesJSON(data []byte) error {
	return validateEmbedded("individual_summaries.schema.json", summariesSchema, gojsonschema.NewBytesLoader(data))
}

func validateEmbedded(name string, compile func() (*gojsonschema.Schema, error), document gojsonschema.JSONLoader) error {
	schema, err := compile()
	if err != nil {
		return &SchemaLoadError{Path: name, Message: "embedded schema does not compile", Cause: err}
	}

	result, err := schema.Validate(document)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	return resultError(result)
}

// ValidateJSON validates a JSON file against a JSON Schema file
func ValidateJSON(schemaPath, jsonPath string) error {
	schemaAbsPath, err := filepath.Abs(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to resolve schema path: %w", err)
	}

	jsonAbsPath, err := filepath.Abs(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to resolve JSON path: %w", err)
	}

	if _, err := os.Stat(schemaAbsPath); os.IsNotExist(err) {
		return fmt.Errorf("schema file not found: %s", schemaAbsPath)
	}

	if _, err := os.Stat(jsonAbsPath); os.IsNotExist(err) {
		return fmt.Errorf("JSON file not found: %s", jsonAbsPath)
	}

	schemaLoader := gojsonschema.NewReferenceLoader("file://" + filepath.ToSlash(schemaAbsPath))
	documentLoader := gojsonschema.NewReferenceLoader("file://" + filepath.ToSlash(jsonAbsPath))

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    schemaAbsPath,
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	return resultError(result)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	return resultError(result)
}

// resultError converts a failed result into a *ValidationError
func resultError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
