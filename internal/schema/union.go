package schema

import (
	"fmt"
	"sort"
)

// Variant is one member of a response union: a literal status code, the
// schema for the body, and an optional schema for the response headers.
type Variant struct {
	Status  int
	Body    *Schema
	Headers *Schema
}

// ResponseSchema is a discriminated union of response variants keyed by
// status code. Read-only after construction.
type ResponseSchema struct {
	variants map[int]Variant
}

// Union builds a ResponseSchema from variants. It panics on a duplicate
// status code or a variant without a body schema; unions are declared at
// startup where a panic surfaces the programming error immediately.
func Union(variants ...Variant) *ResponseSchema {
	u := &ResponseSchema{variants: make(map[int]Variant, len(variants))}
	for _, v := range variants {
		if v.Body == nil {
			panic(fmt.Sprintf("schema: union variant %d has no body schema", v.Status))
		}
		if _, dup := u.variants[v.Status]; dup {
			panic(fmt.Sprintf("schema: duplicate union variant for status %d", v.Status))
		}
		u.variants[v.Status] = v
	}
	return u
}

// Validate selects the variant whose status code matches and validates
// the body (and headers, when the variant declares a header schema)
// against it. A status with no matching variant is a validation failure.
func (u *ResponseSchema) Validate(status int, headers map[string]string, body any) *ValidationError {
	v, ok := u.variants[status]
	if !ok {
		return newValidationError("status", fmt.Sprintf("status %d is not declared by the response schema (declared: %v)", status, u.Statuses()))
	}

	if _, verr := v.Body.Validate(body); verr != nil {
		return verr
	}

	if v.Headers != nil {
		candidate := make(map[string]any, len(headers))
		for k, val := range headers {
			candidate[k] = val
		}
		if _, verr := v.Headers.Validate(candidate); verr != nil {
			return verr
		}
	}
	return nil
}

// Statuses returns the declared status codes in ascending order.
func (u *ResponseSchema) Statuses() []int {
	out := make([]int, 0, len(u.variants))
	for s := range u.variants {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}
