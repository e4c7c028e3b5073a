package v1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uniminuto/minuni-api/internal/domain"
	"github.com/uniminuto/minuni-api/internal/service"
)

// RateRequest is the wire form of a rating submission.
type RateRequest struct {
	ChatID  string `json:"idChat"`
	Score   int    `json:"calificacion"`
	Comment string `json:"comentario,omitempty"`
}

// Rate stores a rating for a chat.
// POST /api/rate
func (h *Handler) Rate(c echo.Context) error {
	var req RateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	rating, err := h.service.SaveRating(c.Request().Context(), req.ChatID, req.Score, req.Comment)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRating) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "rating must be between 1 and 5"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "failed to save rating"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "rating saved", "rating_id": rating.RatingID})
}

// GetRatings retrieves ratings, optionally filtered by chat and score range.
// GET /api/ratings?idChat=&min_calificacion=&max_calificacion=
func (h *Handler) GetRatings(c echo.Context) error {
	filter := domain.RatingFilter{ChatID: c.QueryParam("idChat")}
	if v := c.QueryParam("min_calificacion"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.MinScore = n
		}
	}
	if v := c.QueryParam("max_calificacion"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.MaxScore = n
		}
	}

	ratings, err := h.service.ListRatings(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "failed to list ratings"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ratings": ratings})
}

// GetChatHistory retrieves messages, optionally filtered by chat and date range.
// Dates accept RFC 3339 or plain YYYY-MM-DD.
// GET /api/chatHistory?idChat=&start_date=&end_date=
func (h *Handler) GetChatHistory(c echo.Context) error {
	filter := domain.MessageFilter{ChatID: c.QueryParam("idChat")}
	if t, ok := parseDate(c.QueryParam("start_date")); ok {
		filter.StartDate = &t
	}
	if t, ok := parseDate(c.QueryParam("end_date")); ok {
		filter.EndDate = &t
	}

	messages, err := h.service.ChatHistory(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "failed to query messages"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": messages})
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
