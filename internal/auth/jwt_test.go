package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dating-platform/internal/config"

	"github.com/gin-gonic/gin"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:      "secret",
		JWTIssuer:      "issuer",
		JWTAudience:    "aud",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()

	tok, err := m.Issue(now, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()
	tok, _ := m.Issue(now, "user-1")
	if _, err := m.Verify(tok, now.Add(time.Hour)); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	other, _ := NewManager(config.AuthConfig{JWTSecret: "other"})
	tok, _ := other.Issue(time.Now(), "user-1")
	if _, err := newTestManager(t).Verify(tok, time.Now()); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestRequireAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})

	r := gin.New()
	r.GET("/me", RequireAccessToken(m), func(c *gin.Context) {
		uid, _ := UserID(c.Request.Context())
		c.String(http.StatusOK, uid)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	tok, _ := m.Issue(time.Now(), "u42")
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "u42" {
		t.Fatalf("expected 200 u42, got %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok})
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected cookie auth to pass, got %d", w.Code)
	}
}
