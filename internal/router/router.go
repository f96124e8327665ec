package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/config"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/handler/api"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/middleware"
)

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	cfg *config.Config,
	tasks api.TaskService,
	idempotency middleware.IdempotencyStore,
	logger *zap.Logger,
) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.CORS())

	taskHandler := api.NewScheduledTaskHandler(tasks, logger)

	// Every scheduled-task route needs the provider credential.
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.ProviderCredential(&cfg.Provider))

	apiGroup.GET("/scheduled-tasks", taskHandler.List)
	apiGroup.POST("/scheduled-tasks", taskHandler.Create, middleware.Idempotency(idempotency, logger))
	apiGroup.GET("/scheduled-tasks/:id", taskHandler.Get)
	apiGroup.PUT("/scheduled-tasks/:id", taskHandler.Update)
	apiGroup.DELETE("/scheduled-tasks/:id", taskHandler.Delete)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status": "ok",
			"store":  cfg.Store.Driver,
		})
	})
}
