package contract

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"petstore-api-go/internal/schema"
)

var testRequestDoc = []byte(`{
	"type": "object",
	"properties": {
		"path": {
			"type": "object",
			"properties": {"id": {"type": "integer", "minimum": 1}},
			"required": ["id"]
		},
		"query": {"type": "object"},
		"header": {"type": "object"},
		"body": {
			"type": "object",
			"properties": {"name": {"type": "string", "minLength": 1}},
			"required": ["name"]
		}
	},
	"required": ["path", "query", "header", "body"]
}`)

var okBodyDoc = []byte(`{
	"type": "object",
	"properties": {"id": {"type": "integer"}},
	"required": ["id"]
}`)

var errBodyDoc = []byte(`{
	"type": "object",
	"properties": {"error": {"type": "string"}},
	"required": ["error"]
}`)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOperation(h HandlerFunc) *Operation {
	return &Operation{
		Name:    "test_op",
		Method:  http.MethodPost,
		Path:    "/things/:id",
		Request: schema.MustCompile(testRequestDoc).Coerce("path.id", schema.Int),
		Handler: h,
		Response: schema.Union(
			schema.Variant{Status: http.StatusOK, Body: schema.MustCompile(okBodyDoc)},
			schema.Variant{Status: http.StatusNotFound, Body: schema.MustCompile(errBodyDoc)},
		),
	}
}

// invokeOp runs one pipeline invocation against a fresh echo context.
func invokeOp(t *testing.T, p *Pipeline, op *Operation, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(op.Method, "/things/5", reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(op.Path)
	c.SetParamNames("id")
	c.SetParamValues("5")

	if err := p.Invoke(c, op); err != nil {
		t.Fatalf("Invoke() error = %v, want nil", err)
	}
	return rec
}

func TestInvoke_Success(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	var got *Request
	op := testOperation(func(_ echo.Context, req *Request) (*Response, error) {
		got = req
		return &Response{Status: http.StatusOK, Body: map[string]any{"id": int64(5)}}, nil
	})

	rec := invokeOp(t, p, op, `{"name":"Fido"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		t.Errorf("content type = %q, want %q", ct, echo.MIMEApplicationJSON)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["id"] != float64(5) {
		t.Errorf("body.id = %v, want 5", body["id"])
	}

	// The handler saw the schema-coerced request, field for field.
	if got == nil {
		t.Fatal("handler never received a request")
	}
	if got.Path["id"] != int64(5) {
		t.Errorf("bound path.id = %v (%T), want int64(5)", got.Path["id"], got.Path["id"])
	}
	wantBody := map[string]any{"name": "Fido"}
	if !reflect.DeepEqual(got.Body, wantBody) {
		t.Errorf("bound body = %v, want %v", got.Body, wantBody)
	}
	if got.Header["content-type"] != echo.MIMEApplicationJSON {
		t.Errorf("bound header content-type = %v", got.Header["content-type"])
	}
}

func TestInvoke_RequestValidationFailure(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	handlerCalled := false
	op := testOperation(func(_ echo.Context, _ *Request) (*Response, error) {
		handlerCalled = true
		return &Response{Status: http.StatusOK, Body: map[string]any{"id": int64(1)}}, nil
	})

	// Body missing the required "name" field.
	rec := invokeOp(t, p, op, `{}`)

	if handlerCalled {
		t.Error("handler ran on a non-conforming request")
	}
	assertFallback(t, rec)
}

func TestInvoke_PathCoercionFailure(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	handlerCalled := false
	op := testOperation(func(_ echo.Context, _ *Request) (*Response, error) {
		handlerCalled = true
		return nil, nil
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/things/notanumber", strings.NewReader(`{"name":"Fido"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(op.Path)
	c.SetParamNames("id")
	c.SetParamValues("notanumber")

	if err := p.Invoke(c, op); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if handlerCalled {
		t.Error("handler ran despite coercion failure")
	}
	assertFallback(t, rec)
}

func TestInvoke_MiddlewareOrdering(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	var order []string
	step := func(name string) BeforeFunc {
		return func(_ echo.Context, _ *Request) error {
			order = append(order, name)
			return nil
		}
	}
	after := func(name string) AfterFunc {
		return func(_ echo.Context, _ *Request, _ *Response) error {
			order = append(order, name)
			return nil
		}
	}

	op := testOperation(func(_ echo.Context, _ *Request) (*Response, error) {
		order = append(order, "handler")
		return &Response{Status: http.StatusOK, Body: map[string]any{"id": int64(1)}}, nil
	})
	op.Before = []BeforeFunc{step("before1"), step("before2")}
	op.After = []AfterFunc{after("after1"), after("after2")}

	rec := invokeOp(t, p, op, `{"name":"Fido"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	want := []string{"before1", "before2", "handler", "after1", "after2"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
}

func TestInvoke_BeforeMiddlewareFailureShortCircuits(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	var order []string
	op := testOperation(func(_ echo.Context, _ *Request) (*Response, error) {
		order = append(order, "handler")
		return &Response{Status: http.StatusOK, Body: map[string]any{"id": int64(1)}}, nil
	})
	op.Before = []BeforeFunc{
		func(_ echo.Context, _ *Request) error {
			order = append(order, "before1")
			return nil
		},
		func(_ echo.Context, _ *Request) error {
			order = append(order, "before2")
			return errors.New("auth lookup failed")
		},
		func(_ echo.Context, _ *Request) error {
			order = append(order, "before3")
			return nil
		},
	}

	rec := invokeOp(t, p, op, `{"name":"Fido"}`)

	want := []string{"before1", "before2"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
	assertFallback(t, rec)
}

func TestInvoke_AfterMiddlewareFailureSkipsResponseBinding(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	var order []string
	op := testOperation(func(_ echo.Context, _ *Request) (*Response, error) {
		return &Response{Status: http.StatusOK, Body: map[string]any{"id": int64(1)}}, nil
	})
	op.After = []AfterFunc{
		func(_ echo.Context, _ *Request, _ *Response) error {
			order = append(order, "after1")
			return errors.New("audit sink unavailable")
		},
		func(_ echo.Context, _ *Request, _ *Response) error {
			order = append(order, "after2")
			return nil
		},
	}

	rec := invokeOp(t, p, op, `{"name":"Fido"}`)

	if !reflect.DeepEqual(order, []string{"after1"}) {
		t.Errorf("execution order = %v, want [after1]", order)
	}
	assertFallback(t, rec)
}

func TestInvoke_HandlerFailure(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	op := testOperation(func(_ echo.Context, _ *Request) (*Response, error) {
		return nil, errors.New("boom")
	})

	rec := invokeOp(t, p, op, `{"name":"Fido"}`)
	assertFallback(t, rec)
}

func TestInvoke_HandlerInvokedExactlyOnce(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	calls := 0
	op := testOperation(func(_ echo.Context, _ *Request) (*Response, error) {
		calls++
		return &Response{Status: http.StatusOK, Body: map[string]any{"id": int64(1)}}, nil
	})

	invokeOp(t, p, op, `{"name":"Fido"}`)
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
}

func TestInvoke_SecondUnionVariantAccepted(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	op := testOperation(func(_ echo.Context, _ *Request) (*Response, error) {
		return &Response{
			Status: http.StatusNotFound,
			Body:   map[string]string{"error": "no such thing"},
		}, nil
	})

	rec := invokeOp(t, p, op, `{"name":"Fido"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestInvoke_ResponseValidationFailure(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	tests := []struct {
		name string
		res  *Response
	}{
		{"undeclared status", &Response{Status: http.StatusTeapot, Body: map[string]any{"id": int64(1)}}},
		{"body violates variant shape", &Response{Status: http.StatusOK, Body: map[string]any{"wrong": true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := testOperation(func(_ echo.Context, _ *Request) (*Response, error) {
				return tt.res, nil
			})
			rec := invokeOp(t, p, op, `{"name":"Fido"}`)
			assertFallback(t, rec)
		})
	}
}

func TestInvoke_NilHandlerResponse(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	op := testOperation(func(_ echo.Context, _ *Request) (*Response, error) {
		return nil, nil
	})

	rec := invokeOp(t, p, op, `{"name":"Fido"}`)
	assertFallback(t, rec)
}

func TestInvoke_FailureTranslationIsIndependentPerInvocation(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	op := testOperation(func(_ echo.Context, _ *Request) (*Response, error) {
		return &Response{Status: http.StatusOK, Body: map[string]any{"id": int64(1)}}, nil
	})

	first := invokeOp(t, p, op, `{}`)
	second := invokeOp(t, p, op, `{}`)

	assertFallback(t, first)
	assertFallback(t, second)
	if first.Body.String() != second.Body.String() {
		t.Errorf("fallback bodies differ: %q vs %q", first.Body.String(), second.Body.String())
	}
}

func TestInvoke_FallbackSkipsCommittedResponse(t *testing.T) {
	p := NewPipeline(testLogger(), nil)

	op := testOperation(func(c echo.Context, _ *Request) (*Response, error) {
		// A middleware or handler that wrote the raw response directly.
		if err := c.String(http.StatusAccepted, "short-circuit"); err != nil {
			return nil, err
		}
		return nil, errors.New("failed after committing")
	})

	rec := invokeOp(t, p, op, `{"name":"Fido"}`)

	// The committed response wins; the fallback must not double-write.
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if got := rec.Body.String(); got != "short-circuit" {
		t.Errorf("body = %q, want %q", got, "short-circuit")
	}
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	p := NewPipeline(testLogger(), nil)
	e := echo.New()

	op1 := testOperation(func(_ echo.Context, _ *Request) (*Response, error) { return nil, nil })
	op2 := testOperation(func(_ echo.Context, _ *Request) (*Response, error) { return nil, nil })

	if err := p.Register(e, op1); err != nil {
		t.Fatalf("Register(op1) error = %v", err)
	}
	if err := p.Register(e, op2); err == nil {
		t.Error("Register() accepted a duplicate method+path pair")
	}
}

func TestRegister_ValidatesOperation(t *testing.T) {
	p := NewPipeline(testLogger(), nil)
	e := echo.New()

	tests := []struct {
		name string
		op   *Operation
	}{
		{"nil handler", &Operation{Name: "x", Method: "GET", Path: "/x", Request: schema.MustCompile(testRequestDoc), Response: schema.Union(schema.Variant{Status: 200, Body: schema.MustCompile(okBodyDoc)})}},
		{"nil request schema", &Operation{Name: "x", Method: "GET", Path: "/x", Handler: func(echo.Context, *Request) (*Response, error) { return nil, nil }, Response: schema.Union(schema.Variant{Status: 200, Body: schema.MustCompile(okBodyDoc)})}},
		{"nil response schema", &Operation{Name: "x", Method: "GET", Path: "/x", Handler: func(echo.Context, *Request) (*Response, error) { return nil, nil }, Request: schema.MustCompile(testRequestDoc)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := p.Register(e, tt.op); err == nil {
				t.Error("Register() expected error, got nil")
			}
		})
	}
}

func TestRegister_ServesThroughEcho(t *testing.T) {
	p := NewPipeline(testLogger(), nil)
	e := echo.New()

	op := testOperation(func(_ echo.Context, req *Request) (*Response, error) {
		return &Response{Status: http.StatusOK, Body: map[string]any{"id": req.Path["id"]}}, nil
	})
	if err := p.Register(e, op); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/things/9", strings.NewReader(`{"name":"Fido"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["id"] != float64(9) {
		t.Errorf("body.id = %v, want 9", body["id"])
	}
}

// assertFallback checks the uniform failure translation: fixed 500,
// problem content type, minimal body.
func assertFallback(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != ProblemContentType {
		t.Errorf("content type = %q, want %q", ct, ProblemContentType)
	}
	if got := rec.Body.String(); got != "{}" {
		t.Errorf("fallback body = %q, want %q", got, "{}")
	}
}
