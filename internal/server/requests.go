package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PathRequest names a file or directory under the upload root
type PathRequest struct {
	Path string `json:"path" validate:"required"`
}

// RunRequest starts a review over an upload directory. Zero values use the
// server's defaults.
type RunRequest struct {
	InputDir            string   `json:"input_dir,omitempty"` // Relative to the upload root
	Model               string   `json:"model,omitempty"`
	AggregateModel      string   `json:"aggregate_model,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokensIndividual int      `json:"max_tokens_individual,omitempty" validate:"gte=0"`
	MaxTokensAggregate  int      `json:"max_tokens_aggregate,omitempty" validate:"gte=0"`
	Workers             int      `json:"workers,omitempty" validate:"gte=0,lte=64"`
	PlanPrompt          string   `json:"plan_prompt,omitempty"`
	APIKey              string   `json:"api_key,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// decodeRequest reads a JSON body into v and validates it. An empty body
// leaves v at its zero value when allowEmpty is set.
func decodeRequest(r *http.Request, v any, allowEmpty bool) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return &ErrValidation{Field: "body", Message: err.Error()}
		}
	}
	if err := validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ErrValidation{Field: fe.Field(), Message: fmt.Sprintf("failed %s", fe.Tag())}
		}
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}
