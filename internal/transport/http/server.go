// Package http provides the HTTP server for the chat service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/uniminuto/minuni-api/internal/service"
	v1 "github.com/uniminuto/minuni-api/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server. The chat widget reads
// the chat id from the X-Chat-ID response header, so CORS must expose it.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowHeaders:  []string{echo.HeaderContentType, v1.HeaderChatID},
		ExposeHeaders: []string{v1.HeaderChatID},
	}))

	// Handlers
	h := v1.NewHandler(svc)
	h.RegisterRoutes(e)

	return e
}
