package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visittrack/internal/middleware"
	"visittrack/internal/models"
)

func TestIssueSessionTokenRoundTrip(t *testing.T) {
	user := models.User{
		ID:    primitive.NewObjectID(),
		Email: "sales@example.com",
		Role:  models.RoleSales,
	}

	tokenString, err := issueSessionToken(user, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issueSessionToken returned error: %v", err)
	}

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token did not verify: %v", err)
	}

	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != user.ID.Hex() {
		t.Fatalf("unexpected sub claim %v", claims["sub"])
	}
	if claims["role"] != models.RoleSales || claims["email"] != "sales@example.com" {
		t.Fatalf("unexpected claims %v", claims)
	}
	exp, ok := claims["exp"].(float64)
	if !ok || int64(exp) <= time.Now().Unix() {
		t.Fatalf("expected a future exp claim, got %v", claims["exp"])
	}
}

func TestIssueSessionTokenRejectsWrongSecret(t *testing.T) {
	user := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	tokenString, err := issueSessionToken(user, "right-secret", time.Hour)
	if err != nil {
		t.Fatalf("issueSessionToken returned error: %v", err)
	}

	_, err = jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	})
	if err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestSetSessionCookieAttributes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	setSessionCookie(c, "the-token", time.Hour, false)

	cookie := recorder.Header().Get("Set-Cookie")
	if !strings.HasPrefix(cookie, middleware.SessionCookie+"=the-token") {
		t.Fatalf("unexpected cookie header %q", cookie)
	}
	if !strings.Contains(cookie, "HttpOnly") {
		t.Fatalf("cookie must be http-only: %q", cookie)
	}
	if !strings.Contains(cookie, "SameSite=Strict") {
		t.Fatalf("cookie must be SameSite strict: %q", cookie)
	}
}

func TestClearSessionCookieOverwrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	clearSessionCookie(c, false)

	cookie := recorder.Header().Get("Set-Cookie")
	if !strings.HasPrefix(cookie, middleware.SessionCookie+"=loggedout") {
		t.Fatalf("expected the session cookie replaced, got %q", cookie)
	}
}

func TestLowerCamel(t *testing.T) {
	cases := map[string]string{
		"Email":       "email",
		"FirstName":   "firstName",
		"":            "",
		"displayName": "displayName",
	}
	for in, want := range cases {
		if got := lowerCamel(in); got != want {
			t.Fatalf("lowerCamel(%q) = %q, want %q", in, got, want)
		}
	}
}
