package routes

import (
	"pitstop/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all endpoints for the conversation engine.
func RegisterRoutes(r *gin.Engine, chat *handlers.ChatHandler) {
	r.GET("/health", handlers.Health)

	api := r.Group("/api/chat")
	{
		api.POST("/message", chat.SubmitMessage)
		api.POST("/:conversationID/action", chat.SubmitAction)
	}
}
