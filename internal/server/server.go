package server

import (
	"net/http"

	"app/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ルート登録担当
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo)
}

func New(registrars ...RouteRegistrar) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	for _, r := range registrars {
		r.RegisterRoutes(e)
	}

	return e
}

func Start(addr string, registrars ...RouteRegistrar) error {
	e := New(registrars...)
	return e.Start(addr)
}
