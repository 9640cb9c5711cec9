package httpapi

import (
	"net/http"

	"dating-platform/internal/auth"
	"dating-platform/internal/users"
	"dating-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /auth/register.
func (h Handlers) Register(c *gin.Context) {
	if h.Users == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "users not configured"})
		return
	}
	var req users.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json", nil)
		return
	}
	u, err := h.Users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Registration failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User registered successfully", "user": u})
}

// Login handles POST /auth/login: checks credentials, issues an access
// token and sets it as the session cookie.
func (h Handlers) Login(c *gin.Context) {
	if h.Users == nil || h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json", nil)
		return
	}
	u, err := h.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "Login failed")
		return
	}
	token, err := h.Auth.Issue(h.now(), u.ID)
	if err != nil {
		logger.FromGin(c).Error("token issuance failed", "err", err, "user_id", u.ID)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.SessionCookie, token, int(h.Auth.TTL().Seconds()), "/", "", h.SecureCookies, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful", "user": u, "token": token})
}

// Logout handles DELETE /auth/login by clearing the session cookie.
func (h Handlers) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", h.SecureCookies, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logout successful"})
}

// ListUsers handles GET /users: the profiles a user can browse, which
// excludes their own.
func (h Handlers) ListUsers(c *gin.Context) {
	if h.Users == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "users not configured"})
		return
	}
	self, _ := auth.UserID(c.Request.Context())
	list, err := h.Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to fetch users")
		return
	}
	out := make([]users.User, 0, len(list))
	for _, u := range list {
		if u.ID != self {
			out = append(out, u)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": out})
}
