package server

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"

	"github.com/tripdesk/permit"
	"github.com/tripdesk/permit/guard"
	"github.com/tripdesk/permit/logging"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServerOption customizes the configuration and operation of the server.
type ServerOption func(*builder)

type handler struct {
	pattern string
	handler http.Handler
}

// New returns a new server. Host, port, CORS origins and TLS files default to
// the values in permit.Config.
func New(opts ...ServerOption) *Server {
	b := &builder{
		host:        permit.ConfigString("server.host"),
		port:        permit.ConfigInt("server.port"),
		corsOrigins: permit.ConfigStrings("server.corsOrigins"),
		certFile:    permit.ConfigString("server.tls.certFile"),
		keyFile:     permit.ConfigString("server.tls.keyFile"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b.build()
}

type builder struct {
	host           string
	port           int
	corsOrigins    []string
	certFile       string
	keyFile        string
	logger         logging.Logger
	guard          *guard.Guard
	httpHandlers   []handler
	interceptors   []grpc.UnaryServerInterceptor
	serverBuilders []func(s *Server)
}

func (b *builder) build() *Server {
	if b.logger == nil {
		b.logger = logging.NewDevLogger()
	}

	s := &Server{
		baseContext: logging.With(context.Background(), b.logger),
		host:        b.host,
		port:        b.port,
		certFile:    b.certFile,
		keyFile:     b.keyFile,
		httpMux:     http.NewServeMux(),
		grpcServer:  grpc.NewServer(b.buildGRPCOpts()...),
		health:      health.NewServer(),
		drained:     make(chan struct{}),
		logger:      b.logger,
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)

	for _, fn := range b.serverBuilders {
		fn(s)
	}
	for _, h := range b.httpHandlers {
		s.httpMux.Handle(h.pattern, h.handler)
	}
	s.httpHandler = b.wrapHandler(s.httpMux)
	return s
}

// Wraps the whole mux, so preflight requests are answered before method
// patterns are matched.
func (b *builder) wrapHandler(h http.Handler) http.Handler {
	if len(b.corsOrigins) == 0 {
		// If there are no allowed origins configured, disable CORS headers completely.
		return h
	}
	allowed := map[string]bool{}
	for _, origin := range b.corsOrigins {
		allowed[origin] = true
	}
	allowedHeaders := strings.Join([]string{"Authorization", "Content-Type"}, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allowed[r.Header.Get("Origin")] {
			w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		}
		if r.Method == http.MethodOptions {
			return // Just the headers.
		}
		h.ServeHTTP(w, r)
	})
}

func (b *builder) buildGRPCOpts() []grpc.ServerOption {
	interceptors := []grpc.UnaryServerInterceptor{logging.Interceptor(b.logger)}
	if b.guard != nil {
		interceptors = append(interceptors, b.guard.UnaryServerInterceptor())
	}
	interceptors = append(interceptors, b.interceptors...)
	opts := []grpc.ServerOption{grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(interceptors...))}
	if b.certFile != "" && b.keyFile != "" {
		opts = append(opts, grpc.Creds(serverTLSFromFile(b.certFile, b.keyFile)))
	}
	return opts
}

// WithHost configures the hostname or IP the server will listen on. Overrides
// value set in config file.
func WithHost(host string) ServerOption {
	return func(b *builder) {
		b.host = host
	}
}

// WithPort configures the port the server will listen on. Overrides
// value set in config file.
func WithPort(port int) ServerOption {
	return func(b *builder) {
		b.port = port
	}
}

// WithTLS configures the server to allow traffic via TLS using the provided
// cert. If not called server will use HTTP/H2C.
func WithTLS(certFile, keyFile string) ServerOption {
	return func(b *builder) {
		b.certFile = certFile
		b.keyFile = keyFile
	}
}

// WithCORSAllowedOrigins specifies origins that are allowed to make requests,
// in addition to those in server.corsOrigins.
func WithCORSAllowedOrigins(origins ...string) ServerOption {
	return func(b *builder) {
		b.corsOrigins = append(b.corsOrigins, origins...)
	}
}

// WithLogger overrides the logger used by the server.
func WithLogger(logger logging.Logger) ServerOption {
	return func(b *builder) {
		b.logger = logger
	}
}

// WithGuard enforces the guard's method rules on gRPC requests. The guard
// runs after the logging interceptor so decisions are tracked.
func WithGuard(g *guard.Guard) ServerOption {
	return func(b *builder) {
		b.guard = g
	}
}

// WithHTTPHandler adds an HTTP handler for a ServeMux pattern.
func WithHTTPHandler(pattern string, h http.Handler) ServerOption {
	return func(b *builder) {
		b.httpHandlers = append(b.httpHandlers, handler{
			pattern: pattern,
			handler: h,
		})
	}
}

// WithAPI mounts the JSON API.
func WithAPI(api *API) ServerOption {
	return func(b *builder) {
		for pattern, h := range api.Routes() {
			b.httpHandlers = append(b.httpHandlers, handler{pattern: pattern, handler: h})
		}
	}
}

// WithGRPCInterceptor configures GRPC Unary Interceptors. They will be executed
// in the order they were added, after logging and the guard.
func WithGRPCInterceptor(interceptor grpc.UnaryServerInterceptor) ServerOption {
	return func(b *builder) {
		b.interceptors = append(b.interceptors, interceptor)
	}
}

// WithGRPCService registers a GRPC service handler.
func WithGRPCService(desc *grpc.ServiceDesc, impl any) ServerOption {
	return func(b *builder) {
		b.serverBuilders = append(b.serverBuilders, func(s *Server) {
			s.ServiceRegistrar().RegisterService(desc, impl)
		})
	}
}

// Creates credentials from a cert and key file.
// Based on credentials.NewServerTLSFromFile
func serverTLSFromFile(cert, key string) credentials.TransportCredentials {
	c, err := tls.LoadX509KeyPair(cert, key)
	if err != nil {
		panic(err)
	}
	tlsConfig := safeTLSConfig()
	tlsConfig.Certificates = []tls.Certificate{c}
	return credentials.NewTLS(tlsConfig)
}

// TLS1.2 min and support for HTTP2.
func safeTLSConfig() *tls.Config {
	return &tls.Config{
		NextProtos: []string{"h2"},
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
	}
}
