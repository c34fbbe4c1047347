// Package server runs the permit API: gRPC and JSON over HTTP, multiplexed on
// a single port.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/tripdesk/permit/logging"

	"github.com/NYTimes/gziphandler"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// Server wraps a HTTP server and a GRPC server.
//
// Usage:
//
//	s := server.New(
//		server.WithGuard(g),
//		server.WithAPI(server.NewAPI(g, svc)),
//	)
//	s.Start()
//
// See cmd/permitd.
type Server struct {
	// Hostname or IP to bind to.
	host string

	// Port to listen on.
	port int

	// Location of certificate file, if TLS to be used.
	certFile string

	// Location of key file, if TLS to be used.
	keyFile string

	// Context that is propagated to handlers. Carries the logger.
	baseContext context.Context

	// Guards httpServer, listener and stopped, which Start and Shutdown
	// share.
	mu sync.Mutex

	// Handles original request and multiplexes to grpcServer or httpMux.
	httpServer *http.Server

	// Set by Start once bound.
	listener net.Listener

	// Set by the first Shutdown.
	stopped bool

	// Closed when Shutdown has finished draining.
	drained chan struct{}

	// Handles regular HTTP requests.
	httpMux *http.ServeMux

	// httpMux behind the CORS handler.
	httpHandler http.Handler

	// Handles GRPC requests of content-type application/grpc.
	grpcServer *grpc.Server

	// Serves grpc.health.v1.Health.
	health *health.Server

	logger logging.Logger
}

// ServiceRegistrar returns the GRPC Service Registrar for use with service
// implementations.
func (s *Server) ServiceRegistrar() grpc.ServiceRegistrar {
	return s.grpcServer
}

// Addr is the address the server listens on.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// Handler returns the root handler, which sends gRPC traffic to the gRPC
// server and everything else through the gzip and logging middleware to the
// HTTP mux. Without TLS the handler speaks h2c.
func (s *Server) Handler() http.Handler {
	grpcHandler := s.grpcServer
	httpHandler := gziphandler.GzipHandler(logging.HTTPMiddleware(s.logger)(s.httpHandler))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ProtoMajor == 2 && strings.Contains(r.Header.Get("Content-Type"), "application/grpc") {
			grpcHandler.ServeHTTP(w, r)
		} else {
			httpHandler.ServeHTTP(w, r)
		}
	})
	if s.isSecure() {
		return handler
	}
	return h2c.NewHandler(handler, &http2.Server{})
}

// ListenAddr returns the address the server is bound to, or "" before Start
// has opened its listener. Useful when listening on port 0.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start serving requests. Blocks until Shutdown is called or the process
// receives SIGINT or SIGTERM. Returns nil when the server was shut down.
func (s *Server) Start() error {
	addr := s.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(listener net.Listener) context.Context {
			return s.baseContext
		},
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.httpServer = srv
	s.listener = ln
	s.health.Resume()
	s.mu.Unlock()

	gracefulStop := make(chan os.Signal, 1)
	signal.Notify(gracefulStop, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(gracefulStop)

	served := make(chan error, 1)
	go func() {
		if s.isSecure() {
			srv.TLSConfig = safeTLSConfig()
			logging.Infof(s.baseContext, "🚀  Listening for traffic on https://%s", ln.Addr())
			served <- srv.ServeTLS(ln, s.certFile, s.keyFile)
		} else {
			logging.Infof(s.baseContext, "🚀  Listening for traffic on http://%s", ln.Addr())
			served <- srv.Serve(ln)
		}
	}()

	select {
	case sig := <-gracefulStop:
		logging.Infof(s.baseContext, "👋 Graceful shutdown triggered... (sig %+v)", sig)
		_ = s.Shutdown()
		err = <-served
	case err = <-served:
	}

	if !errors.Is(err, http.ErrServerClosed) {
		return err // The server wasn't shutdown gracefully.
	}
	<-s.drained
	return nil
}

// Shutdown gracefully shuts down the server with a 2s timeout. A server that
// is shut down before Start never serves. Later calls are no-ops.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	srv := s.httpServer
	s.health.Shutdown()
	s.mu.Unlock()
	defer close(s.drained)

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(s.baseContext, time.Second*2)
	defer cancel()
	err := srv.Shutdown(ctx)
	if err != nil {
		logging.Errorw(s.baseContext, "❌ Shutdown error", "error", err)
	} else {
		logging.Info(s.baseContext, "👍 Connections drained")
	}
	return err
}

func (s *Server) isSecure() bool {
	return s.certFile != "" && s.keyFile != ""
}
