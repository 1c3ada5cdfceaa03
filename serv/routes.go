package serv

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpheaders "github.com/go-http-utils/headers"
)

const (
	routeQuery    = "/api/v1/query"
	routeMirror   = "/api/v1/mirror"
	routeProgress = "/api/v1/mirror/progress"
	routeHealth   = "/health"
)

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(setServerHeader)

	corsMW := cors.New(cors.Options{
		AllowedOrigins:   s.conf.CORS.AllowedOrigins,
		AllowedHeaders:   append([]string{httpheaders.Authorization, httpheaders.ContentType}, s.conf.CORS.AllowedHeaders...),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		Debug:            s.conf.CORS.Debug,
	})
	r.Use(corsMW.Handler)

	r.Get(routeHealth, s.healthHandler)

	auth := authMiddleware(s.conf)
	compress := gzhttp.GzipHandler

	r.With(auth).Method(http.MethodPost, routeQuery, otelhttp.NewHandler(compress(http.HandlerFunc(s.queryHandler)), "query"))
	r.With(auth).Method(http.MethodPost, routeMirror, otelhttp.NewHandler(http.HandlerFunc(s.mirrorHandler), "mirror"))
	r.With(auth).Get(routeProgress, s.progressHandler)

	return r
}

func setServerHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", serverName)
		next.ServeHTTP(w, r)
	})
}
