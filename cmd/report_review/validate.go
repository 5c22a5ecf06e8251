package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/report-review/internal/schemas"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		schemaPath string
		jsonPath   string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a record or summaries file against its JSON Schema",
		Long: `Validates --json against the built-in person record schema, or the
individual summaries schema when the document is an array. --schema selects
a schema file instead.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			err := validateFile(schemaPath, jsonPath)
			var validationErr *schemas.ValidationError
			if errors.As(err, &validationErr) {
				_, _ = fmt.Fprint(a.stdout, "Validation failed:\n"+validationErr.Error())
				return fmt.Errorf("%s does not match the schema", jsonPath)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "Validation passed: %s\n", jsonPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "Path to a JSON Schema file (defaults to the built-in schemas)")
	cmd.Flags().StringVar(&jsonPath, "json", "", "Path to the JSON file to validate")
	_ = cmd.MarkFlagRequired("json")
	return cmd
}

func validateFile(schemaPath, jsonPath string) error {
	if schemaPath != "" {
		return schemas.ValidateJSON(schemaPath, jsonPath)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		return schemas.ValidateSummariesJSON(data)
	}
	return schemas.ValidatePersonRecordJSON(data)
}
