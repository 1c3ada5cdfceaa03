package serv

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gooofy/quadstore/config"
)

func signHMAC(t *testing.T, secret, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestBearerTokenExtractsFromHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	assert.Equal(t, "abc.def.ghi", bearerToken(req))
}

func TestBearerTokenRejectsMissingOrMalformedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(req))

	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, bearerToken(req))
}

func TestAuthMiddlewareDevelopmentBypassesCheck(t *testing.T) {
	c := &config.Config{Auth: config.Auth{Development: true}}
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rr := httptest.NewRecorder()
	authMiddleware(c)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	c := &config.Config{Auth: config.Auth{Development: false, Secret: "s3cret"}}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a token")
	})

	rr := httptest.NewRecorder()
	authMiddleware(c)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthMiddlewareAcceptsValidHMACToken(t *testing.T) {
	c := &config.Config{Auth: config.Auth{Development: false, Secret: "s3cret"}}
	token := signHMAC(t, "s3cret", "alice")

	var subject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = r.Context().Value(ctxKeySubject).(string)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	authMiddleware(c)(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice", subject)
}

func TestAuthMiddlewareRejectsTokenSignedWithWrongSecret(t *testing.T) {
	c := &config.Config{Auth: config.Auth{Development: false, Secret: "s3cret"}}
	token := signHMAC(t, "wrong-secret", "alice")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run with an invalid signature")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	authMiddleware(c)(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthMiddlewareAcceptsStaticAdminKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("top-secret-key"), bcrypt.DefaultCost)
	require.NoError(t, err)

	c := &config.Config{Auth: config.Auth{Development: false, Secret: "s3cret", AdminAPIKeyHash: string(hash)}}

	var subject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = r.Context().Value(ctxKeySubject).(string)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer top-secret-key")

	rr := httptest.NewRecorder()
	authMiddleware(c)(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "admin", subject)
}
