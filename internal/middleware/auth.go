package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"visittrack/internal/models"
)

// SessionCookie carries the signed session token; it is http-only so the SPA
// never reads it directly.
const SessionCookie = "jwt"

const currentUserKey = "currentUser"

var errNoToken = errors.New("no token")

// Protect resolves the session token into a full user document and injects it
// into the context. Inactive or deleted users are rejected even with a valid
// token.
func Protect(db *mongo.Database, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := Authenticate(c, db, secret)
		if err != nil {
			log.Println("[AUTH] [ERROR] request rejected:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "fail",
				"message": "You are not logged in! Please log in to get access.",
			})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// Authenticate extracts the token from the Authorization header or the session
// cookie and loads the matching user. Shared with the /oauth/check endpoint,
// which must not abort on failure.
func Authenticate(c *gin.Context, db *mongo.Database, secret string) (models.User, error) {
	tokenString, err := tokenFromRequest(c)
	if err != nil {
		return models.User{}, err
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return models.User{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.User{}, errors.New("invalid claims")
	}

	sub, _ := claims["sub"].(string)
	userID, err := primitive.ObjectIDFromHex(strings.TrimSpace(sub))
	if err != nil {
		return models.User{}, errors.New("invalid sub claim")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		return models.User{}, errors.New("user no longer exists")
	}
	if !user.IsActive {
		return models.User{}, errors.New("user is inactive")
	}

	return user, nil
}

func tokenFromRequest(c *gin.Context) (string, error) {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw != "" {
		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", errors.New("invalid authorization header")
		}
		return parts[1], nil
	}

	if cookie, err := c.Cookie(SessionCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return cookie, nil
	}

	return "", errNoToken
}

// RequireRoles gates a route to the listed roles. Must run after Protect.
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := UserFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "fail",
				"message": "You are not logged in! Please log in to get access.",
			})
			return
		}

		for _, role := range allowedRoles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"status":  "fail",
			"message": "You do not have permission to perform this action",
		})
	}
}

func UserFromContext(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}
