package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"visittrack/internal/config"
	"visittrack/internal/middleware"
	"visittrack/internal/models"
)

const oauthStateCookie = "oauth_state"

const graphProfileURL = "https://graph.microsoft.com/v1.0/me"

// microsoftProfile is the slice of the Graph /me response this service reads.
type microsoftProfile struct {
	ID                string `json:"id"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
}

func (p microsoftProfile) email() string {
	if p.Mail != "" {
		return strings.ToLower(p.Mail)
	}
	return strings.ToLower(p.UserPrincipalName)
}

func microsoftOAuthConfig(cfg config.MicrosoftConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{"openid", "profile", "email", "User.Read"},
		Endpoint:     microsoft.AzureADEndpoint(cfg.TenantID),
	}
}

// MicrosoftLogin redirects the browser into the Microsoft authorization-code
// flow, pinning a random state in a short-lived cookie.
func MicrosoftLogin(cfg config.Config) gin.HandlerFunc {
	conf := microsoftOAuthConfig(cfg.Microsoft)
	return func(c *gin.Context) {
		state, err := randomState()
		if err != nil {
			log.Println("[OAUTH] [ERROR] state generation failed:", err)
			c.Redirect(http.StatusFound, cfg.FrontendURL+"/login?error=server_error")
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(oauthStateCookie, state, 600, "/", "", cfg.CookieSecure, true)

		log.Println("[OAUTH] [INFO] initiating Microsoft login")
		c.Redirect(http.StatusFound, conf.AuthCodeURL(state))
	}
}

// MicrosoftCallback finishes the code exchange. Only pre-existing users may
// log in; unknown identities are bounced back to the frontend, never
// auto-provisioned.
func MicrosoftCallback(db *mongo.Database, cfg config.Config) gin.HandlerFunc {
	conf := microsoftOAuthConfig(cfg.Microsoft)
	return func(c *gin.Context) {
		loginURL := cfg.FrontendURL + "/login"

		if errParam := c.Query("error"); errParam != "" {
			log.Println("[OAUTH] [ERROR] provider returned error:", errParam, c.Query("error_description"))
			c.Redirect(http.StatusFound, loginURL+"?error=auth_failed")
			return
		}

		code := c.Query("code")
		if code == "" {
			log.Println("[OAUTH] [ERROR] no authorization code received")
			c.Redirect(http.StatusFound, loginURL+"?error=auth_failed")
			return
		}

		cookieState, err := c.Cookie(oauthStateCookie)
		if err != nil || cookieState == "" || cookieState != c.Query("state") {
			log.Println("[OAUTH] [ERROR] state mismatch")
			c.Redirect(http.StatusFound, loginURL+"?error=auth_failed")
			return
		}
		c.SetCookie(oauthStateCookie, "", -1, "/", "", cfg.CookieSecure, true)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		token, err := conf.Exchange(ctx, code)
		if err != nil {
			log.Println("[OAUTH] [ERROR] code exchange failed:", err)
			c.Redirect(http.StatusFound, loginURL+"?error=server_error")
			return
		}

		profile, err := fetchMicrosoftProfile(ctx, conf, token)
		if err != nil {
			log.Println("[OAUTH] [ERROR] profile fetch failed:", err)
			c.Redirect(http.StatusFound, loginURL+"?error=server_error")
			return
		}

		tenantID := tenantFromIDToken(token)

		user, err := linkMicrosoftUser(ctx, db, profile, tenantID)
		if err == mongo.ErrNoDocuments {
			log.Println("[OAUTH] [WARN] login attempt from unauthorized user:", profile.email())
			c.Redirect(http.StatusFound, loginURL+"?error=unauthorized")
			return
		}
		if err != nil {
			log.Println("[OAUTH] [ERROR] user lookup failed:", err)
			c.Redirect(http.StatusFound, loginURL+"?error=server_error")
			return
		}

		if !user.IsActive {
			log.Println("[OAUTH] [WARN] login attempt from inactive user:", user.Email)
			c.Redirect(http.StatusFound, loginURL+"?error=inactive")
			return
		}

		session, err := issueSessionToken(user, cfg.JWTSecret, cfg.SessionTTL)
		if err != nil {
			log.Println("[OAUTH] [ERROR] token generation failed:", err)
			c.Redirect(http.StatusFound, loginURL+"?error=server_error")
			return
		}
		setSessionCookie(c, session, cfg.SessionTTL, cfg.CookieSecure)

		log.Println("[OAUTH] [INFO] user logged in:", user.Email)
		c.Redirect(http.StatusFound, cfg.FrontendURL+"/dashboard")
	}
}

func fetchMicrosoftProfile(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (microsoftProfile, error) {
	client := conf.Client(ctx, token)

	resp, err := client.Get(graphProfileURL)
	if err != nil {
		return microsoftProfile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return microsoftProfile{}, fmt.Errorf("graph profile request returned %d", resp.StatusCode)
	}

	var profile microsoftProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return microsoftProfile{}, err
	}
	if profile.email() == "" {
		return microsoftProfile{}, fmt.Errorf("graph profile carries no email")
	}
	return profile, nil
}

// tenantFromIDToken pulls the tid claim out of the id_token. The token came
// straight from the token endpoint over TLS, so it is decoded without
// signature verification; it is only used for the tenant hint.
func tenantFromIDToken(token *oauth2.Token) string {
	raw, _ := token.Extra("id_token").(string)
	if raw == "" {
		return ""
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return ""
	}

	tid, _ := claims["tid"].(string)
	return tid
}

// linkMicrosoftUser finds the existing account by email or microsoftId and
// stamps the external identity onto it. Returns mongo.ErrNoDocuments for
// unknown identities.
func linkMicrosoftUser(ctx context.Context, db *mongo.Database, profile microsoftProfile, tenantID string) (models.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": profile.email()},
		bson.M{"microsoftId": profile.ID},
	}}

	now := time.Now()
	update := bson.M{
		"microsoftId": profile.ID,
		"lastLogin":   now,
		"updatedAt":   now,
	}
	if tenantID != "" {
		update["tenantId"] = tenantID
	}
	if profile.DisplayName != "" {
		update["displayName"] = profile.DisplayName
	}

	var user models.User
	err := db.Collection("users").FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$set": update},
		findAfterUpdate(),
	).Decode(&user)
	return user, err
}

// GetCurrentUser serves /oauth/me behind the auth middleware.
func GetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.UserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Not authenticated"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"user": user},
		})
	}
}

// CheckAuth reports session validity without aborting, for the SPA's boot
// probe.
func CheckAuth(db *mongo.Database, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.Authenticate(c, db, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":        "fail",
				"authenticated": false,
				"message":       "Not authenticated",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":        "success",
			"authenticated": true,
			"data":          gin.H{"user": user},
		})
	}
}

// OAuthLogout clears the session cookie; there is no provider-side session to
// revoke.
func OAuthLogout(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		clearSessionCookie(c, cfg.CookieSecure)
		log.Println("[OAUTH] [INFO] user logged out")
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Logged out successfully",
		})
	}
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
