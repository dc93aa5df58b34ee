// Package schema wraps JSON Schema validation with declared coercions
// and discriminated-union response schemas.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Kind selects the target type of a declared coercion.
type Kind int

const (
	// Int coerces a string leaf to int64.
	Int Kind = iota
	// Number coerces a string leaf to float64.
	Number
	// Bool coerces a string leaf to bool.
	Bool
)

// Schema is a compiled JSON Schema document plus its declared coercions.
// Compile once at startup; a Schema is read-only after registration and
// safe for concurrent use.
type Schema struct {
	compiled     *gojsonschema.Schema
	coercions    map[string]Kind
	declaresBody bool
}

// Compile parses and compiles a JSON Schema document. It also records
// whether the document declares a top-level "body" property, which the
// request binder uses to decide whether an operation expects a body.
func Compile(doc []byte) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("schema: compile: %w", err)
	}

	var probe struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(doc, &probe); err != nil {
		return nil, fmt.Errorf("schema: inspect properties: %w", err)
	}
	_, declaresBody := probe.Properties["body"]

	return &Schema{
		compiled:     compiled,
		coercions:    make(map[string]Kind),
		declaresBody: declaresBody,
	}, nil
}

// MustCompile is like Compile but panics on error. Intended for
// package-level schema documents known to be valid.
func MustCompile(doc []byte) *Schema {
	s, err := Compile(doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Coerce declares that the string leaf at the dotted path (e.g. "path.id")
// is converted to the given kind before validation. Returns the receiver
// for chaining. Must only be called before the schema is shared.
func (s *Schema) Coerce(path string, kind Kind) *Schema {
	s.coercions[path] = kind
	return s
}

// DeclaresBody reports whether the schema document declares a top-level
// "body" property.
func (s *Schema) DeclaresBody() bool {
	return s.declaresBody
}

// Validate applies the declared coercions to a copy of the candidate and
// validates the result against the compiled schema. On success it returns
// the coerced value; the caller's candidate is never mutated.
func (s *Schema) Validate(candidate any) (any, *ValidationError) {
	coerced, verr := s.applyCoercions(candidate)
	if verr != nil {
		return nil, verr
	}

	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(coerced))
	if err != nil {
		return nil, newValidationError("", err.Error())
	}
	if !result.Valid() {
		return nil, fromResult(result)
	}
	return coerced, nil
}

// applyCoercions returns the candidate with every declared coercion
// applied. Maps along a coerced path are shallow-copied so the original
// candidate stays untouched.
func (s *Schema) applyCoercions(candidate any) (any, *ValidationError) {
	if len(s.coercions) == 0 {
		return candidate, nil
	}
	for path, kind := range s.coercions {
		segments := strings.Split(path, ".")
		out, err := coerceAt(candidate, segments, kind)
		if err != nil {
			return nil, newValidationError(path, err.Error())
		}
		candidate = out
	}
	return candidate, nil
}

// coerceAt walks one dotted path and converts the string leaf, cloning
// each map level it descends through. A missing segment or a non-string
// leaf is left as-is; the schema decides whether that is acceptable.
func coerceAt(value any, segments []string, kind Kind) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return value, nil
	}
	child, ok := m[segments[0]]
	if !ok {
		return value, nil
	}

	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = v
	}

	if len(segments) > 1 {
		converted, err := coerceAt(child, segments[1:], kind)
		if err != nil {
			return nil, err
		}
		clone[segments[0]] = converted
		return clone, nil
	}

	raw, ok := child.(string)
	if !ok {
		return value, nil
	}
	converted, err := convert(raw, kind)
	if err != nil {
		return nil, err
	}
	clone[segments[0]] = converted
	return clone, nil
}

func convert(raw string, kind Kind) (any, error) {
	switch kind {
	case Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to integer", raw)
		}
		return n, nil
	case Number:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to number", raw)
		}
		return f, nil
	case Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to boolean", raw)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown coercion kind %d", kind)
	}
}
