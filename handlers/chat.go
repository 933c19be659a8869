package handlers

import (
	"errors"
	"net/http"

	"pitstop/models"
	"pitstop/services/conversation"
	"pitstop/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatHandler exposes the two conversation operations over HTTP.
type ChatHandler struct {
	svc    conversation.ConversationService
	logger *zap.Logger
}

// NewChatHandler returns the handler bound to a conversation service.
func NewChatHandler(svc conversation.ConversationService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

// SubmitMessage handles POST /api/chat/message. A missing conversation id
// starts a fresh conversation.
func (h *ChatHandler) SubmitMessage(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.New().String()
	}

	resp, err := h.svc.SubmitMessage(c.Request.Context(), req.ConversationID, req.Text)
	if err != nil {
		h.logger.Error("message turn failed",
			zap.String("conversationID", req.ConversationID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to process message", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitAction handles POST /api/chat/:conversationID/action for the
// confirm/edit/cancel path. It resolves to the same state machine and field
// store as the message path.
func (h *ChatHandler) SubmitAction(c *gin.Context) {
	conversationID := c.Param("conversationID")

	var action models.ConfirmationAction
	if err := c.ShouldBindJSON(&action); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	resp, err := h.svc.SubmitConfirmationAction(c.Request.Context(), conversationID, action)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			utils.JSONError(c, http.StatusNotFound, "conversation not found or expired", "")
			return
		}
		h.logger.Error("confirmation action failed",
			zap.String("conversationID", conversationID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to process action", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Health handles GET /health with the latest dependency snapshot.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, utils.GetHealthStatus())
}
