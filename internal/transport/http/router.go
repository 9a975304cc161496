package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"notifrelay/internal/transport/mw"
)

// NewRouter sets up all Echo routes and middleware.
func NewRouter(h *Handler, jwtSecret string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	// Health (no auth required)
	e.GET("/health", h.Health)

	// API, requires authentication
	v1 := e.Group("")
	v1.Use(mw.JWTAuth(jwtSecret))

	// Capture entry point
	v1.POST("/notifications", h.Capture)

	// REST endpoints
	v1.GET("/notifications", h.ListNotifications)
	v1.GET("/notifications/stats", h.Stats)
	v1.GET("/notifications/:id", h.GetNotification)
	v1.GET("/notifications/:id/icon", h.GetIcon)
	v1.POST("/notifications/:id/webhook", h.Resend)
	v1.DELETE("/notifications/:id", h.Delete)
	v1.DELETE("/notifications", h.Clear)

	// Config
	v1.GET("/config", h.GetConfig)
	v1.PUT("/config/webhook", h.SetWebhook)
	v1.POST("/config/allowed-apps", h.AddAllowedApp)
	v1.DELETE("/config/allowed-apps/:app", h.RemoveAllowedApp)

	// SSE endpoint
	v1.GET("/notifications/stream", h.Stream)

	return e
}
