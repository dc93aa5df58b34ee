package handler

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"petstore-api-go/internal/contract"
	"petstore-api-go/internal/middleware"
	"petstore-api-go/internal/schema"
	"petstore-api-go/internal/service"
)

//go:embed schema_create_pet_request.json
var createPetRequestDoc []byte

//go:embed schema_get_pet_request.json
var getPetRequestDoc []byte

//go:embed schema_pet.json
var petBodyDoc []byte

//go:embed schema_not_found.json
var notFoundBodyDoc []byte

// PetHandler implements the petstore operations.
type PetHandler struct {
	pets   *service.PetStore
	logger *slog.Logger
}

// NewPetHandler creates a PetHandler.
func NewPetHandler(pets *service.PetStore, logger *slog.Logger) *PetHandler {
	return &PetHandler{
		pets:   pets,
		logger: logger.With("component", "pet_handler"),
	}
}

// CreatePetOperation declares POST /pets: a JSON pet body in, the stored
// pet (with assigned id) out.
func (h *PetHandler) CreatePetOperation() *contract.Operation {
	return &contract.Operation{
		Name:    "create_pet",
		Method:  http.MethodPost,
		Path:    "/pets",
		Request: schema.MustCompile(createPetRequestDoc),
		Before: []contract.BeforeFunc{
			middleware.OperationAudit(h.logger),
		},
		Handler: h.createPet,
		Response: schema.Union(
			schema.Variant{Status: http.StatusOK, Body: schema.MustCompile(petBodyDoc)},
		),
		After: []contract.AfterFunc{
			middleware.NoStore(),
		},
	}
}

// GetPetOperation declares GET /pets/:id with a coerced integer path
// parameter and a two-variant response union (200 pet, 404 error).
func (h *PetHandler) GetPetOperation() *contract.Operation {
	return &contract.Operation{
		Name:    "get_pet",
		Method:  http.MethodGet,
		Path:    "/pets/:id",
		Request: schema.MustCompile(getPetRequestDoc).Coerce("path.id", schema.Int),
		Before: []contract.BeforeFunc{
			middleware.OperationAudit(h.logger),
		},
		Handler: h.getPet,
		Response: schema.Union(
			schema.Variant{Status: http.StatusOK, Body: schema.MustCompile(petBodyDoc)},
			schema.Variant{Status: http.StatusNotFound, Body: schema.MustCompile(notFoundBodyDoc)},
		),
	}
}

func (h *PetHandler) createPet(_ echo.Context, req *contract.Request) (*contract.Response, error) {
	body, ok := req.Body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("create pet: body is %T, want object", req.Body)
	}

	name, _ := body["name"].(string)
	status, _ := body["status"].(string)
	age, err := intField(body, "age")
	if err != nil {
		return nil, fmt.Errorf("create pet: %w", err)
	}

	pet := h.pets.Create(name, int(age), status)
	return &contract.Response{Status: http.StatusOK, Body: pet}, nil
}

func (h *PetHandler) getPet(_ echo.Context, req *contract.Request) (*contract.Response, error) {
	id, err := intField(req.Path, "id")
	if err != nil {
		return nil, fmt.Errorf("get pet: %w", err)
	}

	pet, err := h.pets.Get(id)
	if errors.Is(err, service.ErrPetNotFound) {
		return &contract.Response{
			Status: http.StatusNotFound,
			Body:   map[string]string{"error": "pet not found"},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pet: %w", err)
	}

	return &contract.Response{Status: http.StatusOK, Body: pet}, nil
}

// intField reads an integer field that may arrive as int64 (schema
// coercion), float64 (JSON decoding) or json.Number.
func intField(m map[string]any, key string) (int64, error) {
	switch v := m[key].(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	default:
		return 0, fmt.Errorf("field %q is %T, want integer", key, v)
	}
}
