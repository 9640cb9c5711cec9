package httpapi

import (
	"errors"
	"net/http"

	"dating-platform/internal/calls"
	"dating-platform/internal/chat"
	"dating-platform/internal/users"
	"dating-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto {"error", "details"} bodies.
func respondError(c *gin.Context, err error, fallback string) {
	var (
		callVE *calls.ValidationError
		chatVE *chat.ValidationError
		userVE *users.ValidationError
	)
	switch {
	case errors.As(err, &callVE):
		badRequest(c, "Validation failed", callVE.Problems)
	case errors.As(err, &chatVE):
		badRequest(c, "Validation failed", chatVE.Problems)
	case errors.As(err, &userVE):
		badRequest(c, "Validation failed", userVE.Problems)
	case errors.Is(err, calls.ErrInvalidTransition):
		badRequest(c, err.Error(), nil)
	case errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Call not found"})
	case errors.Is(err, users.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "account already exists"})
	case errors.Is(err, users.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	default:
		logger.FromGin(c).Error(fallback, "err", err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func badRequest(c *gin.Context, msg string, details any) {
	body := gin.H{"error": msg}
	if details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
