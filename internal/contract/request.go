package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
)

// bindRequest assembles the candidate record from the raw transport
// request and validates it against the operation's request schema.
// The body key is attached only when the schema declares one, so the
// schema can tell "no body expected" apart from "body expected but
// empty". It never writes to the response.
func bindRequest(c echo.Context, op *Operation) (*Request, error) {
	pathParams := make(map[string]any)
	names := c.ParamNames()
	values := c.ParamValues()
	for i, name := range names {
		if i < len(values) {
			pathParams[name] = values[i]
		}
	}

	query := make(map[string]any)
	for k, vs := range c.QueryParams() {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}

	header := make(map[string]any)
	for k, vs := range c.Request().Header {
		if len(vs) > 0 {
			header[strings.ToLower(k)] = vs[0]
		}
	}

	candidate := map[string]any{
		"path":   pathParams,
		"query":  query,
		"header": header,
	}

	if op.Request.DeclaresBody() {
		var body any
		if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode request body: %w", err)
		}
		candidate["body"] = body
	}

	validated, verr := op.Request.Validate(candidate)
	if verr != nil {
		return nil, verr
	}
	m, ok := validated.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("validated request candidate is %T, want object", validated)
	}

	req := &Request{
		Path:   asObject(m["path"]),
		Query:  asObject(m["query"]),
		Header: asObject(m["header"]),
	}
	if op.Request.DeclaresBody() {
		req.Body = m["body"]
	}
	return req, nil
}

// asObject returns the value as a map, or an empty map when it is absent
// or of another shape.
func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return make(map[string]any)
}
