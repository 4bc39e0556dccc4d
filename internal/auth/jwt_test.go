package auth

import (
	"net/http/httptest"
	"testing"

	"fxchange/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret")
	userID := uuid.New()

	token, err := m.GenerateToken(userID, models.RoleModerator)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("expected user id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != models.RoleModerator {
		t.Errorf("expected moderator role, got %d", claims.Role)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a").GenerateToken(uuid.New(), models.RoleMember)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := NewManager("secret-b").ValidateToken(token); err == nil {
		t.Error("expected validation to fail under a different secret")
	}
}

func TestMiddlewareSetsIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager("test-secret")
	userID := uuid.New()

	token, err := m.GenerateToken(userID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("Authorization", "Bearer "+token)

	m.Middleware()(c)
	if c.IsAborted() {
		t.Fatalf("expected request to pass, got status %d", w.Code)
	}

	id, ok := GetUserID(c)
	if !ok || id != userID {
		t.Errorf("expected user id %s in context, got %s (ok=%v)", userID, id, ok)
	}
	role, ok := GetUserRole(c)
	if !ok || role != models.RoleAdmin {
		t.Errorf("expected admin role in context, got %d (ok=%v)", role, ok)
	}
}

func TestMiddlewareRejectsBadHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager("test-secret")

	for _, header := range []string{"", "Token abc", "Bearer not-a-token"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}

		m.Middleware()(c)
		if !c.IsAborted() || w.Code != 401 {
			t.Errorf("header %q: expected 401 abort, got status %d", header, w.Code)
		}

		if _, ok := GetUserID(c); ok {
			t.Errorf("header %q: expected no user id in context", header)
		}
	}
}
