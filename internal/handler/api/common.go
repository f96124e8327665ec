package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/config"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/provider"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/task"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

func errorResponse(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{"error": msg})
}

// failure maps an error from the task service onto an HTTP response.
func failure(c echo.Context, logger *zap.Logger, err error) error {
	var (
		verr *task.ValidationError
		perr *provider.Error
	)
	switch {
	case errors.As(err, &verr):
		return errorResponse(c, http.StatusBadRequest, verr.Reason)
	case errors.Is(err, config.ErrMissingCredential):
		return errorResponse(c, http.StatusUnauthorized, "BROWSER_USE_API_KEY is not configured")
	case errors.As(err, &perr):
		return c.JSON(perr.StatusCode, map[string]any{
			"error":   perr.Message(),
			"details": perr.Body,
		})
	default:
		logger.Error("Provider request failed", zap.String("path", c.Path()), zap.Error(err))
		return errorResponse(c, http.StatusBadGateway, "provider request failed")
	}
}

// bindObject decodes a JSON object body. Path and query parameters are not
// mixed in. An empty body is an empty object.
func bindObject(c echo.Context) (map[string]any, error) {
	body := make(map[string]any)
	if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
		return nil, err
	}
	return body, nil
}

// pagination reads page and limit, falling back to defaults on bad input.
func pagination(c echo.Context) (page, limit int) {
	page, limit = defaultPage, defaultLimit
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 {
		limit = min(l, maxLimit)
	}
	return page, limit
}
