package api

import (
	"assettree/internal/server/config"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupRouter creates and configures the echo router with all routes and middleware.
func SetupRouter(handler *Handler, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", KeyHeader},
	}))
	e.Use(RequestLogger())

	// Registration hashes keys, so it gets its own limiter
	registerLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	e.GET("/health", handler.HandleHealth)
	e.GET("/api/stats", handler.HandleStats)

	roots := e.Group("/api/roots")
	roots.GET("", handler.HandleList)
	roots.POST("", handler.HandleRegister, registerLimiter)
	roots.DELETE("/:name", handler.HandleDelete)
	roots.POST("/:name/refresh", handler.HandleRefresh)
	roots.GET("/:name/local", handler.HandleLocal)
	roots.GET("/:name/global", handler.HandleGlobal)

	return e
}
