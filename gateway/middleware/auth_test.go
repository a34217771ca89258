package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authHandler(requiredScopes ...string) http.Handler {
	auth := NewAuthenticator(AuthConfig{
		Enabled:    true,
		HMACSecret: testSecret,
		Issuer:     "juscat",
	}, nil)
	return auth.Middleware(requiredScopes...)(okHandler())
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := authHandler()
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/admin/cycle", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}
}

func TestAuthAcceptsValidToken(t *testing.T) {
	handler := authHandler("admin")
	token := signToken(t, jwt.MapClaims{
		"iss":   "juscat",
		"sub":   "operator",
		"scope": "admin",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/cycle", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected valid token to pass, got %d", res.Code)
	}
}

func TestAuthRejectsWrongIssuer(t *testing.T) {
	handler := authHandler()
	token := signToken(t, jwt.MapClaims{
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/cycle", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected issuer mismatch to fail, got %d", res.Code)
	}
}

func TestAuthRejectsMissingScope(t *testing.T) {
	handler := authHandler("admin")
	token := signToken(t, jwt.MapClaims{
		"iss":   "juscat",
		"scope": "read",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/cycle", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected scope miss to be forbidden, got %d", res.Code)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	handler := authHandler()
	token := signToken(t, jwt.MapClaims{
		"iss": "juscat",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/cycle", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected expired token to fail, got %d", res.Code)
	}
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: false}, nil)
	handler := auth.Middleware("admin")(okHandler())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/admin/cycle", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected disabled auth to pass through, got %d", res.Code)
	}
}
