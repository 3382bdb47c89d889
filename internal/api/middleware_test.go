package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testJWTSecret = "test-secret"

func mintRepToken(t *testing.T, secret, uid string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uid,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func uidEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := RepUIDFromContext(r.Context())
		if !ok {
			uid = "anonymous"
		}
		w.Write([]byte(uid))
	})
}

func TestRepAuthMiddleware(t *testing.T) {
	handler := RepAuthMiddleware(testJWTSecret)(uidEcho())

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetchDues", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/fetchDues", nil)
		req.Header.Set("Authorization", "Bearer "+mintRepToken(t, "other-secret", "rep-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "rep-1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(testJWTSecret))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/fetchDues", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/fetchDues", nil)
		req.Header.Set("Authorization", "Bearer "+mintRepToken(t, testJWTSecret, "rep-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Body.String() != "rep-1" {
			t.Fatalf("uid = %q, want rep-1", rec.Body.String())
		}
	})
}

func TestOptionalRepAuthMiddleware(t *testing.T) {
	handler := OptionalRepAuthMiddleware(testJWTSecret)(uidEcho())

	t.Run("anonymous passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/createProfile", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
			t.Fatalf("status/body = %d/%q", rec.Code, rec.Body.String())
		}
	})

	t.Run("bad token passes through anonymously", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/createProfile", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != "anonymous" {
			t.Fatalf("status/body = %d/%q", rec.Code, rec.Body.String())
		}
	})

	t.Run("valid token injects uid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/createProfile", nil)
		req.Header.Set("Authorization", "Bearer "+mintRepToken(t, testJWTSecret, "rep-2"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Body.String() != "rep-2" {
			t.Fatalf("uid = %q, want rep-2", rec.Body.String())
		}
	})
}

func TestInternalAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := InternalAuthMiddleware("internal-key")(ok)

	t.Run("missing key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkPaymentTimeout", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/checkPaymentTimeout", nil)
		req.Header.Set("X-Internal-API-Key", "guess")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("correct key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/checkPaymentTimeout", nil)
		req.Header.Set("X-Internal-API-Key", "internal-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("unconfigured key leaves route open", func(t *testing.T) {
		open := InternalAuthMiddleware("")(ok)
		rec := httptest.NewRecorder()
		open.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkPaymentTimeout", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	})
}
