package serv

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDMiddlewareStampsHeaderAndContext(t *testing.T) {
	var gotFromContext string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFromContext, _ = r.Context().Value(ctxKeyRequestID).(string)
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	requestIDMiddleware(next).ServeHTTP(rr, req)

	header := rr.Header().Get("X-Request-Id")
	assert.NotEmpty(t, header)
	assert.Equal(t, header, gotFromContext)
}

func TestRequestIDMiddlewareUniquePerRequest(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rr1 := httptest.NewRecorder()
	requestIDMiddleware(next).ServeHTTP(rr1, httptest.NewRequest(http.MethodGet, "/health", nil))

	rr2 := httptest.NewRecorder()
	requestIDMiddleware(next).ServeHTTP(rr2, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEqual(t, rr1.Header().Get("X-Request-Id"), rr2.Header().Get("X-Request-Id"))
}

func TestSetServerHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	setServerHeader(next).ServeHTTP(rr, req)

	assert.Equal(t, serverName, rr.Header().Get("Server"))
}
