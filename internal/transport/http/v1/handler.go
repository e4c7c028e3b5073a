// Package v1 provides the HTTP handlers for the chat API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/uniminuto/minuni-api/internal/service"
)

// HeaderChatID carries the session identifier out-of-band so the caller can
// reference the same chat on subsequent turns, even when the body streams.
const HeaderChatID = "X-Chat-ID"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/status", h.Status)

	e.POST("/api/stream", h.SubmitTurn)
	e.POST("/api/saveMessage", h.SaveMessage)
	e.POST("/api/rate", h.Rate)
	e.GET("/api/ratings", h.GetRatings)
	e.GET("/api/chatHistory", h.GetChatHistory)
}

// Status returns a fixed liveness indicator.
// GET /status
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, "ok")
}
