package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/restockd/restockd/internal/engine"
)

// CheckRunner defines the interface for triggering a stock check run.
type CheckRunner interface {
	RunCheck(ctx context.Context) (*engine.RunResult, error)
}

// CheckHandler handles cron-triggered stock check requests. The endpoint is
// gated by a shared secret carried in the query string; authorization is
// decided before any catalog or retailer work starts.
type CheckHandler struct {
	runner CheckRunner
	secret string
}

// NewCheckHandler creates a new CheckHandler.
func NewCheckHandler(runner CheckRunner, secret string) *CheckHandler {
	return &CheckHandler{runner: runner, secret: secret}
}

// Check runs one full stock check and reports the number of hits.
func (h *CheckHandler) Check(c echo.Context) error {
	secret := c.QueryParam("secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized",
		})
	}

	res, err := h.runner.RunCheck(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, CheckResponse{
		Status: "ok",
		Found:  res.Found(),
	})
}
