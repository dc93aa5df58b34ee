package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"petstore-api-go/internal/config"
	"petstore-api-go/internal/contract"
	"petstore-api-go/internal/metrics"
)

// RegisterRoutes wires all operations onto the Echo instance through the
// pipeline, and exposes the metrics endpoint when enabled.
func RegisterRoutes(e *echo.Echo, p *contract.Pipeline, pets *PetHandler, health *HealthHandler, m *metrics.Metrics, cfg *config.Config) error {
	if err := p.Register(e,
		pets.CreatePetOperation(),
		pets.GetPetOperation(),
		health.HealthzOperation(),
		health.StatusOperation(),
	); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(
			promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}),
		))
	}
	return nil
}
