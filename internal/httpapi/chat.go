package httpapi

import (
	"net/http"

	"dating-platform/internal/chat"

	"github.com/gin-gonic/gin"
)

// GetMessages handles GET /chat?chatId=. Clients poll it.
func (h Handlers) GetMessages(c *gin.Context) {
	if h.Chat == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "chat not configured"})
		return
	}
	if c.Query("chatId") == "" {
		badRequest(c, "Chat ID is required", nil)
		return
	}
	msgs, err := h.Chat.Fetch(c.Request.Context(), c.Query("chatId"))
	if err != nil {
		respondError(c, err, "Failed to fetch messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
}

// SendMessage handles POST /chat.
func (h Handlers) SendMessage(c *gin.Context) {
	if h.Chat == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "chat not configured"})
		return
	}
	var req chat.NewMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json", nil)
		return
	}
	msg, err := h.Chat.Send(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to send message")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Message sent successfully", "data": msg})
}
