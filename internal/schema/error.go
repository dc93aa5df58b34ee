package schema

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError describes one non-conforming field.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError reports why a candidate did not conform to a schema.
// It is operator-facing detail; the pipeline never writes it to clients.
type ValidationError struct {
	Fields []FieldError
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}

// fromResult converts gojsonschema result errors into a ValidationError.
func fromResult(result *gojsonschema.Result) *ValidationError {
	verr := &ValidationError{}
	for _, re := range result.Errors() {
		verr.Fields = append(verr.Fields, FieldError{
			Field:  re.Field(),
			Reason: re.Description(),
		})
	}
	return verr
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "schema: validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Reason)
			continue
		}
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "schema: validation failed: " + strings.Join(parts, "; ")
}
