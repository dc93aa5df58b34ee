package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"petstore-api-go/internal/contract"
)

// OperationAudit returns a before-middleware that logs the bound request
// at debug level. It sees the validated request, not the raw one.
func OperationAudit(logger *slog.Logger) contract.BeforeFunc {
	return func(c echo.Context, req *contract.Request) error {
		logger.Debug("operation audit",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"path_params", len(req.Path),
			"query_params", len(req.Query),
			"has_body", req.Body != nil,
		)
		return nil
	}
}

// NoStore returns an after-middleware that marks the response as
// non-cacheable. It writes through the raw transport response, so it
// applies whether or not the operation declares a headers schema.
func NoStore() contract.AfterFunc {
	return func(c echo.Context, _ *contract.Request, _ *contract.Response) error {
		c.Response().Header().Set("Cache-Control", "no-store")
		return nil
	}
}
