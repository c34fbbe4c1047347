package logging

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/tripdesk/permit/errors"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
)

const stackSize = 5

// Interceptor returns a gRPC logging interceptor that scopes a logger to each
// call and logs the outcome, including anything recorded with Track.
func Interceptor(base Logger) grpc.UnaryServerInterceptor {
	return grpc_middleware.ChainUnaryServer(rootInterceptor(base), scopingInterceptor, grpcLoggingInterceptor, errorInterceptor)
}

// Ensures a logger is present, for servers whose base context was not set up
// with one.
func rootInterceptor(base Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if FromContext(ctx) == nil {
			ctx = With(ctx, base)
		}
		return handler(ctx, req)
	}
}

// Creates a new logging scope for each request, adding the RPC method name as
// the logger name. This ensures logging.Track works as expected.
func scopingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	return handler(With(ctx, FromContext(ctx).Named(info.FullMethod)), req)
}

// Adds extra error fields to the logging context.
func errorInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		// Recover from panics, wrap them in an error so we can get a clean stack.
		if r := recover(); r != nil {
			Track(ctx, "error.panic", true)
			err = errors.Wrap(r, 3)
			resp = nil
		}
		if err != nil {
			trackError(ctx, err)
		}
	}()

	resp, err = handler(ctx, req)
	return
}

func trackError(ctx context.Context, err error) {
	Track(ctx, "error.type", reflect.TypeOf(err).String())
	Track(ctx, "error.http_status", errors.HTTPStatusCode(err))

	var permitErr *errors.Error
	if errors.As(err, &permitErr) {
		Track(ctx, "error.stack_trace", permitErr.MinimalStack(0, stackSize))
		Track(ctx, "error.original_type", permitErr.TypeName())
	}
}

// Standard interceptor from the gRPC logging middleware.
var grpcLoggingInterceptor = grpc_logging.UnaryServerInterceptor(grpc_logging.LoggerFunc(func(ctx context.Context, lvl grpc_logging.Level, msg string, fields ...any) {
	logger := FromContext(ctx)

	if z, ok := logger.(*ZapLogger); ok {
		// Only panics get zap's stack trace; errors carry their own as a field.
		logger = &ZapLogger{z: z.z.Desugar().WithOptions(
			zap.AddStacktrace(zapcore.PanicLevel),
		).Sugar()}
	}

	for i := 0; i+1 < len(fields); i += 2 {
		key, _ := fields[i].(string)
		logger = logger.With(key, fields[i+1])
	}

	switch lvl {
	case grpc_logging.LevelDebug:
		logger.Debug(msg)
	case grpc_logging.LevelInfo:
		logger.Info(msg)
	case grpc_logging.LevelWarn:
		logger.Warn(msg)
	default:
		logger.Error(msg)
	}
}))

// HTTPMiddleware scopes a logger to each HTTP request and logs one line when
// the request completes. Fields recorded with Track during the request are
// included.
func HTTPMiddleware(base Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			parent := FromContext(r.Context())
			if parent == nil {
				parent = base
			}
			ctx := With(r.Context(), parent.Named("http"))
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r.WithContext(ctx))

			logger := FromContext(ctx).
				With("http.method", r.Method).
				With("http.path", r.URL.Path).
				With("http.status", rw.status).
				With("http.duration", time.Since(start).String())
			switch {
			case rw.status >= http.StatusInternalServerError:
				logger.Error("finished request")
			case rw.status >= http.StatusBadRequest:
				logger.Warn("finished request")
			default:
				logger.Info("finished request")
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
