package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"visittrack/internal/models"
)

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, recorder
}

func TestTokenFromRequestBearerHeader(t *testing.T) {
	c, _ := testContext(t)
	c.Request.Header.Set("Authorization", "Bearer abc.def.ghi")

	token, err := tokenFromRequest(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "abc.def.ghi" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestTokenFromRequestMalformedHeader(t *testing.T) {
	c, _ := testContext(t)
	c.Request.Header.Set("Authorization", "Basic abc")

	if _, err := tokenFromRequest(c); err == nil {
		t.Fatal("expected error for non-bearer header")
	}
}

func TestTokenFromRequestCookieFallback(t *testing.T) {
	c, _ := testContext(t)
	c.Request.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-token"})

	token, err := tokenFromRequest(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "cookie-token" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestTokenFromRequestHeaderWinsOverCookie(t *testing.T) {
	c, _ := testContext(t)
	c.Request.Header.Set("Authorization", "Bearer header-token")
	c.Request.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-token"})

	token, err := tokenFromRequest(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "header-token" {
		t.Fatalf("header token should win, got %q", token)
	}
}

func TestTokenFromRequestMissing(t *testing.T) {
	c, _ := testContext(t)
	if _, err := tokenFromRequest(c); err == nil {
		t.Fatal("expected error when no token is present")
	}
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	c, recorder := testContext(t)
	c.Set(currentUserKey, models.User{Role: models.RoleAdmin})

	RequireRoles(models.RoleAdmin)(c)

	if c.IsAborted() {
		t.Fatalf("admin should pass, got status %d", recorder.Code)
	}
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	c, recorder := testContext(t)
	c.Set(currentUserKey, models.User{Role: models.RoleSales})

	RequireRoles(models.RoleAdmin)(c)

	if !c.IsAborted() || recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
}

func TestRequireRolesWithoutUserIsUnauthorized(t *testing.T) {
	c, recorder := testContext(t)

	RequireRoles(models.RoleAdmin)(c)

	if !c.IsAborted() || recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestUserFromContext(t *testing.T) {
	c, _ := testContext(t)
	if _, ok := UserFromContext(c); ok {
		t.Fatal("expected no user on a fresh context")
	}

	want := models.User{Email: "a@b.com", Role: models.RoleManager}
	c.Set(currentUserKey, want)

	got, ok := UserFromContext(c)
	if !ok || got.Email != want.Email {
		t.Fatalf("unexpected user %+v ok=%v", got, ok)
	}
}
