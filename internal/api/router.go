package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewImportRouter creates the Echo router serving the import surface
func NewImportRouter(handler *ImportHandler) *echo.Echo {
	e := newEcho()

	e.POST("/import", handler.StartImport)

	return e
}

// NewTaskRouter creates the Echo router serving the scraper task surface
func NewTaskRouter(handler *TaskHandler) *echo.Echo {
	e := newEcho()

	task := e.Group("/task")
	task.POST("/create", handler.CreateTask)
	task.POST("/yield", handler.YieldResult)
	task.POST("/finish", handler.CompleteTask)

	return e
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/health", healthCheck)

	return e
}

// healthCheck reports liveness of the listener
func healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
