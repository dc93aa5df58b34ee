// Package contract implements the operation-invocation pipeline: schema
// binding of the request and response around a handler, with before/after
// middleware and a single failure boundary.
package contract

import (
	"github.com/labstack/echo/v4"

	"petstore-api-go/internal/schema"
)

// Request is the bound, schema-validated view of one inbound request.
// It is built fresh per invocation and must not be mutated afterwards;
// the handler's contract is with exactly what was validated.
type Request struct {
	// Path holds route-captured parameters, post-coercion.
	Path map[string]any
	// Query holds the first value of each query parameter.
	Query map[string]any
	// Header holds the first value of each header, keys lowercased.
	Header map[string]any
	// Body is the decoded request body; nil when the operation's request
	// schema declares no body.
	Body any
}

// Response is the handler's result, consumed exactly once by the
// response binder.
type Response struct {
	Status  int
	Headers map[string]string
	Body    any
}

// HandlerFunc is an operation's handler. It receives the raw transport
// context and the bound request, and returns the response value.
type HandlerFunc func(c echo.Context, req *Request) (*Response, error)

// BeforeFunc runs before the handler. It may read or write the raw
// transport objects through the echo context; a non-nil error aborts the
// invocation.
type BeforeFunc func(c echo.Context, req *Request) error

// AfterFunc runs after the handler with the handler's response value.
// Same side-effect and failure contract as BeforeFunc.
type AfterFunc func(c echo.Context, req *Request, res *Response) error

// Operation declares one API operation. Built once at startup and shared
// read-only across all invocations of its route; never mutate after
// registration.
type Operation struct {
	// Name labels the operation in logs and metrics.
	Name   string
	Method string
	Path   string

	Request  *schema.Schema
	Before   []BeforeFunc
	Handler  HandlerFunc
	Response *schema.ResponseSchema
	After    []AfterFunc
}
