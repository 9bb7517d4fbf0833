package handlers

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"visittrack/internal/config"
)

func TestMicrosoftProfileEmailPrefersMail(t *testing.T) {
	p := microsoftProfile{Mail: "Somchai@Example.COM", UserPrincipalName: "somchai@tenant.onmicrosoft.com"}
	if got := p.email(); got != "somchai@example.com" {
		t.Fatalf("expected lowered mail field, got %q", got)
	}
}

func TestMicrosoftProfileEmailFallsBackToUPN(t *testing.T) {
	p := microsoftProfile{UserPrincipalName: "Somchai@Tenant.onmicrosoft.com"}
	if got := p.email(); got != "somchai@tenant.onmicrosoft.com" {
		t.Fatalf("expected lowered principal name, got %q", got)
	}
}

func TestMicrosoftOAuthConfigScopes(t *testing.T) {
	conf := microsoftOAuthConfig(config.MicrosoftConfig{
		ClientID:    "client",
		TenantID:    "common",
		RedirectURI: "http://localhost:8080/oauth/microsoft/callback",
	})
	want := map[string]bool{"openid": true, "profile": true, "email": true, "User.Read": true}
	if len(conf.Scopes) != len(want) {
		t.Fatalf("unexpected scopes %v", conf.Scopes)
	}
	for _, scope := range conf.Scopes {
		if !want[scope] {
			t.Fatalf("unexpected scope %q", scope)
		}
	}
	if conf.Endpoint.AuthURL == "" || conf.Endpoint.TokenURL == "" {
		t.Fatal("endpoint must be populated")
	}
}

func TestTenantFromIDToken(t *testing.T) {
	idToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"tid": "tenant-123"})
	signed, err := idToken.SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}

	token := (&oauth2.Token{}).WithExtra(map[string]interface{}{"id_token": signed})
	if got := tenantFromIDToken(token); got != "tenant-123" {
		t.Fatalf("expected tenant-123, got %q", got)
	}
}

func TestTenantFromIDTokenMissing(t *testing.T) {
	if got := tenantFromIDToken(&oauth2.Token{}); got != "" {
		t.Fatalf("expected empty tenant, got %q", got)
	}
	token := (&oauth2.Token{}).WithExtra(map[string]interface{}{"id_token": "not-a-jwt"})
	if got := tenantFromIDToken(token); got != "" {
		t.Fatalf("expected empty tenant for malformed token, got %q", got)
	}
}

func TestRandomStateIsUniqueHex(t *testing.T) {
	a, err := randomState()
	if err != nil {
		t.Fatalf("randomState returned error: %v", err)
	}
	b, err := randomState()
	if err != nil {
		t.Fatalf("randomState returned error: %v", err)
	}
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("expected 32 hex chars, got %d/%d", len(a), len(b))
	}
	if a == b {
		t.Fatal("consecutive states should differ")
	}
}
