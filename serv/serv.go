// Package serv is the thin HTTP surface in front of the quad store:
// compile-and-run a SPARQL query over HTTP, kick off an LDF mirror job and
// stream its progress, and a health check. Structured the way serv/serv.go
// wires chi, graceful shutdown and the zap access logger for GraphJin,
// scoped down to the handful of routes this store needs.
package serv

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/gooofy/quadstore/compiler"
	"github.com/gooofy/quadstore/config"
	"github.com/gooofy/quadstore/internal/dialect"
	"github.com/gooofy/quadstore/internal/shortcut"
	"github.com/gooofy/quadstore/mirror"
	"github.com/gooofy/quadstore/store"
)

const serverName = "quadstore"

// Server wires a configured Store, compiler and Mirror behind an HTTP
// router.
type Server struct {
	conf        *config.Config
	store       *store.Store
	comp        *compiler.Compiler
	cache       *compiler.Cache
	remoteCache *compiler.RedisCache
	mirror      *mirror.Mirror
	log         *zap.SugaredLogger

	hub           *progressHub
	srv           *http.Server
	shutdownTrace func(context.Context) error
}

// New builds a Server ready to Start, opening its own Store and Mirror from
// c.
func New(ctx context.Context, c *config.Config, log *zap.SugaredLogger) (*Server, error) {
	resolver := shortcut.New(c.Aliases, c.Prefixes)

	st, err := store.Open(ctx, c.Database.ConnString, c.Database.Table, store.WithResolver(resolver))
	if err != nil {
		return nil, err
	}

	d, err := dialect.ForName(c.Database.Type)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	cache, err := compiler.NewCache(1024)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	mir, err := mirror.New(st, resolver, c.Endpoints, log)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	var remoteCache *compiler.RedisCache
	if c.Redis.Addr != "" {
		remoteCache = compiler.NewRedisCache(c.Redis.Addr, time.Duration(c.Redis.TTLSeconds)*time.Second)
	}

	return &Server{
		conf:          c,
		store:         st,
		comp:          compiler.New(d, c.Database.Table),
		cache:         cache,
		remoteCache:   remoteCache,
		mirror:        mir,
		log:           log,
		hub:           newProgressHub(),
		shutdownTrace: initTracing(),
	}, nil
}

// Start blocks serving HTTP on c.HostPort until an interrupt signal is
// received, then shuts down gracefully, mirroring startHTTP's
// signal.Notify/srv.Shutdown dance.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.conf.HostPort,
		Handler:           s.router(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		if err := s.srv.Shutdown(context.Background()); err != nil {
			s.log.Warnf("shutdown: %s", err)
		}
		close(idleConnsClosed)
	}()

	s.srv.RegisterOnShutdown(func() {
		s.hub.closeAll()
		if err := s.shutdownTrace(context.Background()); err != nil {
			s.log.Warnf("shutting down tracer: %s", err)
		}
		if s.remoteCache != nil {
			if err := s.remoteCache.Close(); err != nil {
				s.log.Warnf("closing redis cache: %s", err)
			}
		}
		if err := s.store.Close(); err != nil {
			s.log.Warnf("closing store: %s", err)
		}
	})

	l, err := net.Listen("tcp", s.conf.HostPort)
	if err != nil {
		return err
	}

	s.log.Infow("quadstore serving", "host-port", s.conf.HostPort, "app-name", s.conf.AppName)

	if err := s.srv.Serve(l); err != http.ErrServerClosed {
		return err
	}
	<-idleConnsClosed
	return nil
}
