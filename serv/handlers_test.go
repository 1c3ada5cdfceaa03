package serv

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandlerReportsOK(t *testing.T) {
	s := &Server{}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.healthHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestQueryHandlerRejectsMalformedBody(t *testing.T) {
	s := &Server{}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader("{not json"))
	s.queryHandler(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQueryHandlerRejectsUnparseableQuery(t *testing.T) {
	s := &Server{}

	rr := httptest.NewRecorder()
	body := strings.NewReader(`{"query": "not a sparql query at all ("}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", body)
	s.queryHandler(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMirrorHandlerRejectsMalformedBody(t *testing.T) {
	s := &Server{}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mirror", strings.NewReader("{not json"))
	s.mirrorHandler(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
