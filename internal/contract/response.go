package contract

import (
	"github.com/labstack/echo/v4"
)

// bindResponse validates the handler's response value against the
// operation's response union, then writes headers, status, JSON content
// type and serialized body onto the raw transport response. It must run
// at most once per invocation; validation happens before the first byte
// is written, so a failure here leaves the response untouched for the
// fallback path.
func bindResponse(c echo.Context, op *Operation, res *Response) error {
	if verr := op.Response.Validate(res.Status, res.Headers, res.Body); verr != nil {
		return verr
	}

	h := c.Response().Header()
	for k, v := range res.Headers {
		h.Set(k, v)
	}
	return c.JSON(res.Status, res.Body)
}
