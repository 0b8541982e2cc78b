package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testUser = "5b7c0f1e-8a8d-4c3a-9f6e-2f0a1b2c3d4e"

func TestIssueAndParse(t *testing.T) {
	v := NewVerifier("secret", "neweyes_token")
	token, err := v.Issue(testUser, "Mira", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	identity, err := v.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if identity.UserID != testUser || identity.Name != "Mira" {
		t.Fatalf("unexpected identity %#v", identity)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	v := NewVerifier("secret", "")
	if _, err := v.Parse(""); err != ErrMissingToken {
		t.Fatalf("expected missing token, got %v", err)
	}
	other := NewVerifier("other", "")
	token, _ := other.Issue(testUser, "", time.Hour)
	if _, err := v.Parse(token); err != ErrInvalidToken {
		t.Fatalf("expected foreign signature rejected, got %v", err)
	}
	expired, _ := v.Issue(testUser, "", -time.Minute)
	if _, err := v.Parse(expired); err != ErrInvalidToken {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
	notUUID, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "bob"}).SignedString([]byte("secret"))
	if _, err := v.Parse(notUUID); err != ErrInvalidToken {
		t.Fatalf("expected non-uuid subject rejected, got %v", err)
	}
}

func TestTokenFromRequestOrder(t *testing.T) {
	v := NewVerifier("secret", "neweyes_token")
	req := httptest.NewRequest(http.MethodGet, "/ws/sessions/x?token=query", nil)
	if got := v.TokenFromRequest(req); got != "query" {
		t.Fatalf("expected query token, got %q", got)
	}
	req.AddCookie(&http.Cookie{Name: v.CookieName(), Value: "cookie"})
	if got := v.TokenFromRequest(req); got != "cookie" {
		t.Fatalf("expected cookie token, got %q", got)
	}
	req.Header.Set("Authorization", "Bearer header")
	if got := v.TokenFromRequest(req); got != "header" {
		t.Fatalf("expected header token, got %q", got)
	}
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := NewVerifier("secret", "neweyes_token")
	router := gin.New()
	router.Use(v.Middleware())
	router.GET("/me", RequireUser(), func(c *gin.Context) {
		identity, _ := IdentityFrom(c)
		c.String(http.StatusOK, identity.UserID)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	token, _ := v.Issue(testUser, "", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != testUser {
		t.Fatalf("expected identity echoed, got %d %q", rec.Code, rec.Body.String())
	}
}
