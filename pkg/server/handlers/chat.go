package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/multirag"
	"github.com/soundprediction/multirag/pkg/server/dto"
	"github.com/soundprediction/multirag/pkg/types"
)

// ChatHandler handles question answering requests
type ChatHandler struct {
	engine multirag.Engine
	logger *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(engine multirag.Engine, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		engine: engine,
		logger: logger,
	}
}

// Chat handles POST /v1/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	requestID := RequestID(c)

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:     "invalid request",
			Message:   err.Error(),
			Code:      http.StatusBadRequest,
			RequestID: requestID,
		})
		return
	}
	if err := req.Validate(); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, types.ErrQueryTooLong) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, dto.ErrorResponse{
			Error:     "invalid request",
			Message:   err.Error(),
			Code:      status,
			RequestID: requestID,
		})
		return
	}

	if h.engine == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:     "engine not initialized",
			Code:      http.StatusServiceUnavailable,
			RequestID: requestID,
		})
		return
	}

	h.logger.InfoContext(c.Request.Context(), "Received chat request",
		"request_id", requestID,
		"top_k", req.TopK,
		"query_length", len(req.Query))

	result := h.engine.Answer(c.Request.Context(), req.Query, req.Options(requestID))
	c.JSON(http.StatusOK, dto.NewChatResponse(result))
}
