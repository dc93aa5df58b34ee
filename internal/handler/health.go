package handler

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"

	"petstore-api-go/internal/contract"
	"petstore-api-go/internal/schema"
)

//go:embed schema_bare_request.json
var bareRequestDoc []byte

//go:embed schema_healthz.json
var healthzBodyDoc []byte

//go:embed schema_status.json
var statusBodyDoc []byte

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status operations. They go through the
// same pipeline as the petstore routes, so even liveness responses are
// checked against their schemas.
type HealthHandler struct {
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(v Version) *HealthHandler {
	return &HealthHandler{version: v}
}

// HealthzOperation declares GET /healthz for liveness probes.
func (h *HealthHandler) HealthzOperation() *contract.Operation {
	return &contract.Operation{
		Name:    "healthz",
		Method:  http.MethodGet,
		Path:    "/healthz",
		Request: schema.MustCompile(bareRequestDoc),
		Handler: h.healthz,
		Response: schema.Union(
			schema.Variant{Status: http.StatusOK, Body: schema.MustCompile(healthzBodyDoc)},
		),
	}
}

// StatusOperation declares GET /status with version information.
func (h *HealthHandler) StatusOperation() *contract.Operation {
	return &contract.Operation{
		Name:    "status",
		Method:  http.MethodGet,
		Path:    "/status",
		Request: schema.MustCompile(bareRequestDoc),
		Handler: h.status,
		Response: schema.Union(
			schema.Variant{Status: http.StatusOK, Body: schema.MustCompile(statusBodyDoc)},
		),
	}
}

func (h *HealthHandler) healthz(_ echo.Context, _ *contract.Request) (*contract.Response, error) {
	return &contract.Response{
		Status: http.StatusOK,
		Body:   map[string]string{"status": "ok"},
	}, nil
}

func (h *HealthHandler) status(_ echo.Context, _ *contract.Request) (*contract.Response, error) {
	return &contract.Response{
		Status: http.StatusOK,
		Body: map[string]string{
			"status":  "ok",
			"version": string(h.version),
		},
	}, nil
}
