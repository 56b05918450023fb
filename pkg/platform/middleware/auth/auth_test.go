package auth

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "noro/pkg/domain"
	"noro/pkg/requestcontext"
)

const signingKey = "test-signing-key"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func signToken(t *testing.T, userID string, expiry time.Duration) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	require.NoError(t, err)
	return signed
}

func callerEcho(gotCaller *id.UserID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotCaller = requestcontext.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	verifier := NewVerifier(signingKey)
	userID := id.NewUserID()

	t.Run("missing token is 401", func(t *testing.T) {
		var caller id.UserID
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		RequireAuth(verifier, testLogger())(callerEcho(&caller)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token is 401", func(t *testing.T) {
		var caller id.UserID
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, userID.String(), -time.Minute))
		RequireAuth(verifier, testLogger())(callerEcho(&caller)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token stores caller in context", func(t *testing.T) {
		var caller id.UserID
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, userID.String(), time.Hour))
		RequireAuth(verifier, testLogger())(callerEcho(&caller)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, caller)
	})
}

func TestOptionalAuth(t *testing.T) {
	verifier := NewVerifier(signingKey)
	userID := id.NewUserID()

	t.Run("absent token passes through anonymous", func(t *testing.T) {
		var caller id.UserID
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		OptionalAuth(verifier, testLogger())(callerEcho(&caller)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, caller.IsNil())
	})

	t.Run("presented but invalid token is 401, not anonymous", func(t *testing.T) {
		var caller id.UserID
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		OptionalAuth(verifier, testLogger())(callerEcho(&caller)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token without caller claim is 401", func(t *testing.T) {
		var caller id.UserID
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "", time.Hour))
		OptionalAuth(verifier, testLogger())(callerEcho(&caller)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token stores caller in context", func(t *testing.T) {
		var caller id.UserID
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, userID.String(), time.Hour))
		OptionalAuth(verifier, testLogger())(callerEcho(&caller)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, caller)
	})
}
