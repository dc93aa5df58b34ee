package contract

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"petstore-api-go/internal/metrics"
)

// ProblemContentType marks fallback error responses as structured
// problems without committing to a body format.
const ProblemContentType = "application/problem+json"

// Pipeline stages, used as log/metric labels.
const (
	stageRequestBind      = "request_bind"
	stageBeforeMiddleware = "before_middleware"
	stageHandler          = "handler"
	stageAfterMiddleware  = "after_middleware"
	stageResponseBind     = "response_bind"
)

// Pipeline orchestrates one invocation: bind request, before middleware,
// handler, after middleware, bind response. The first failure at any
// stage short-circuits the rest and is translated into one fallback
// error response. A Pipeline holds no per-invocation state and is safe
// for concurrent use once registration is done.
type Pipeline struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	// registered guards against duplicate method+path registration.
	// Written only during startup, before the server accepts traffic.
	registered map[string]struct{}
}

// NewPipeline creates a Pipeline. The metrics parameter is optional;
// pass nil to disable instrumentation.
func NewPipeline(logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		logger:     logger.With("component", "pipeline"),
		metrics:    m,
		registered: make(map[string]struct{}),
	}
}

// Register binds each operation onto the echo route table. Exactly one
// operation may own a method+path pair. Call only during startup.
func (p *Pipeline) Register(e *echo.Echo, ops ...*Operation) error {
	for _, op := range ops {
		if err := p.register(e, op); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) register(e *echo.Echo, op *Operation) error {
	if op.Handler == nil {
		return fmt.Errorf("operation %q has no handler", op.Name)
	}
	if op.Request == nil {
		return fmt.Errorf("operation %q has no request schema", op.Name)
	}
	if op.Response == nil {
		return fmt.Errorf("operation %q has no response schema", op.Name)
	}
	if op.Name == "" {
		op.Name = op.Method + " " + op.Path
	}

	key := op.Method + " " + op.Path
	if _, dup := p.registered[key]; dup {
		return fmt.Errorf("duplicate operation for %s", key)
	}
	p.registered[key] = struct{}{}

	e.Add(op.Method, op.Path, func(c echo.Context) error {
		return p.Invoke(c, op)
	})
	p.logger.Debug("operation registered", "operation", op.Name, "method", op.Method, "path", op.Path)
	return nil
}

// Invoke runs one invocation of the operation. It always returns nil:
// failures are handled inside the pipeline's own boundary so the
// transport's error handler never writes a second response.
func (p *Pipeline) Invoke(c echo.Context, op *Operation) error {
	if p.metrics != nil {
		p.metrics.RequestsInFlight.Inc()
		defer p.metrics.RequestsInFlight.Dec()
	}

	start := time.Now()
	p.run(c, op)

	if p.metrics != nil {
		status := strconv.Itoa(c.Response().Status)
		p.metrics.OperationsTotal.WithLabelValues(op.Name, status).Inc()
		p.metrics.OperationDuration.WithLabelValues(op.Name).Observe(time.Since(start).Seconds())
	}
	return nil
}

func (p *Pipeline) run(c echo.Context, op *Operation) {
	req, err := bindRequest(c, op)
	if err != nil {
		p.fail(c, op, stageRequestBind, err)
		return
	}

	for i, mw := range op.Before {
		if err := mw(c, req); err != nil {
			p.fail(c, op, stageBeforeMiddleware, fmt.Errorf("before middleware %d: %w", i, err))
			return
		}
	}

	res, err := op.Handler(c, req)
	if err != nil {
		p.fail(c, op, stageHandler, err)
		return
	}
	if res == nil {
		p.fail(c, op, stageHandler, errors.New("handler returned nil response"))
		return
	}

	for i, mw := range op.After {
		if err := mw(c, req, res); err != nil {
			p.fail(c, op, stageAfterMiddleware, fmt.Errorf("after middleware %d: %w", i, err))
			return
		}
	}

	if err := bindResponse(c, op, res); err != nil {
		p.fail(c, op, stageResponseBind, err)
		return
	}
}

// fail logs the failure for operator diagnosis and writes the fallback
// response: fixed 500, problem content type, minimal body. The detail
// never reaches the client. Idempotent: an already-committed response is
// left alone, and write errors are swallowed — this is the last line of
// defense and must not fail outward.
func (p *Pipeline) fail(c echo.Context, op *Operation, stage string, err error) {
	p.logger.Error("invocation failed",
		"operation", op.Name,
		"stage", stage,
		"err", err,
	)
	if p.metrics != nil {
		p.metrics.PipelineFailures.WithLabelValues(op.Name, stage).Inc()
	}

	res := c.Response()
	if res.Committed {
		return
	}
	res.Header().Set(echo.HeaderContentType, ProblemContentType)
	res.WriteHeader(http.StatusInternalServerError)
	_, _ = res.Write([]byte("{}"))
}
