package serv

import (
	"context"
	"net/http"

	"github.com/rs/xid"
)

type reqIDKey string

const ctxKeyRequestID reqIDKey = "request-id"

// requestIDMiddleware stamps each request with an rs/xid identifier,
// returned in the response header and threaded through the context for log
// correlation.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := xid.New().String()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
	})
}
