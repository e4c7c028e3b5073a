package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/uniminuto/minuni-api/internal/config"
	"github.com/uniminuto/minuni-api/internal/domain"
)

// TurnRequest is the wire form a turn submission arrives in. Field names
// match the chat widget.
type TurnRequest struct {
	Input  string `json:"input"`
	ChatID string `json:"idChat,omitempty"`
	Name   string `json:"nombre"`
	Email  string `json:"email"`
}

// SaveMessageRequest is a manual assistant-side message append.
type SaveMessageRequest struct {
	ChatID  string `json:"idChat"`
	Content string `json:"content"`
}

// SubmitTurn handles a turn submission. Direct mode streams the reply as it
// is generated; run mode answers with a single JSON payload. Either way the
// chat id travels in the X-Chat-ID header.
// POST /api/stream
func (h *Handler) SubmitTurn(c echo.Context) error {
	var req TurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	turn := domain.TurnRequest{
		Input:            req.Input,
		ChatID:           req.ChatID,
		ParticipantName:  req.Name,
		ParticipantEmail: req.Email,
	}
	ctx := c.Request().Context()

	if h.service.Mode() == config.ModeRun {
		result, err := h.service.Turn(ctx, turn)
		if err != nil {
			return h.turnError(c, err)
		}
		c.Response().Header().Set(HeaderChatID, result.ChatID)
		return c.JSON(http.StatusOK, result)
	}

	chat, err := h.service.PrepareTurn(ctx, turn)
	if err != nil {
		return h.turnError(c, err)
	}

	c.Response().Header().Set(HeaderChatID, chat.ChatID)
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return errors.New("streaming not supported")
	}

	err = h.service.StreamTurn(ctx, chat, req.Input, func(delta string) error {
		if _, err := c.Response().Writer.Write([]byte(delta)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	// The status line is out by now; an interrupted stream simply ends the
	// body early. The service has already logged the cause.
	if err != nil && !errors.Is(err, domain.ErrStreamFailure) {
		return err
	}
	return nil
}

// SaveMessage manually appends an assistant-side message.
// POST /api/saveMessage
func (h *Handler) SaveMessage(c echo.Context) error {
	var req SaveMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.ChatID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "idChat is required"})
	}

	if err := h.service.SaveMessage(c.Request().Context(), req.ChatID, req.Content); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save message"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "saved"})
}

// turnError maps orchestration errors to status codes. Provider detail never
// travels past this point.
func (h *Handler) turnError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrTurnRejected):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "input rejected"})
	case errors.Is(err, domain.ErrChatNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "chat not found"})
	case errors.Is(err, domain.ErrRunConflict):
		return c.JSON(http.StatusConflict, map[string]string{"error": "a response is already being generated for this chat"})
	case errors.Is(err, domain.ErrRunTimeout):
		return c.JSON(http.StatusGatewayTimeout, map[string]string{"error": "response timed out, please retry"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
