package httpapi

import (
	"net/http"
	"strings"
	"time"

	"dating-platform/internal/calls"

	"github.com/gin-gonic/gin"
)

type createCallRequest struct {
	CallerID   string       `json:"callerId"`
	ReceiverID string       `json:"receiverId"`
	Status     calls.Status `json:"status"`
}

type updateCallRequest struct {
	CallID  string       `json:"callId"`
	Status  calls.Status `json:"status"`
	EndTime *time.Time   `json:"endTime"`
}

// CreateCall handles POST /call.
func (h Handlers) CreateCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}
	var req createCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json", nil)
		return
	}
	rec, err := h.Calls.Create(c.Request.Context(), calls.NewRecord{
		CallerID:   req.CallerID,
		ReceiverID: req.ReceiverID,
		Status:     req.Status,
	})
	if err != nil {
		respondError(c, err, "Failed to initiate call")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Call initiated successfully", "call": rec})
}

// UpdateCall handles PUT /call.
func (h Handlers) UpdateCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}
	var req updateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json", nil)
		return
	}
	var problems []string
	if strings.TrimSpace(req.CallID) == "" {
		problems = append(problems, "callId is required")
	}
	if !req.Status.Valid() {
		problems = append(problems, "status must be one of initiated, ongoing, ended, missed")
	}
	if len(problems) > 0 {
		badRequest(c, "Validation failed", problems)
		return
	}

	rec, err := h.Calls.Update(c.Request.Context(), strings.TrimSpace(req.CallID), calls.Patch{Status: req.Status, EndTime: req.EndTime})
	if err != nil {
		respondError(c, err, "Failed to update call status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Call status updated successfully", "call": rec})
}

// ListCalls handles GET /call?userId=.
func (h Handlers) ListCalls(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		badRequest(c, "User ID is required", nil)
		return
	}
	recs, err := h.Calls.List(c.Request.Context(), calls.Filter{UserID: userID})
	if err != nil {
		respondError(c, err, "Failed to fetch calls")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "calls": recs})
}
