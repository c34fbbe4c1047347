// Package errors is a fork of `github.com/go-errors/errors` that attaches a
// gRPC status code, an optional HTTP status override, a public message and a
// stack trace to an error.
//
// Authorization code in this module uses it to carry the difference between
// "no principal" (Unauthenticated) and "principal, but not allowed"
// (PermissionDenied) from the point of decision up to the transport, where
// the code is mapped to a gRPC status or an HTTP response.
//
// For example:
//
//	var ErrSuspended = errors.NewC("account suspended", codes.PermissionDenied)
//
//	func (s *Service) Role(ctx context.Context, id string) (rbac.Role, error) {
//	    p, err := s.store.Get(ctx, id)
//	    if err != nil {
//	        return "", err
//	    }
//	    if p.Suspended {
//	        return "", errors.Mark(ErrSuspended, 0)
//	    }
//	    return p.Role, nil
//	}
//
// Callers can then use errors.Is(err, ErrSuspended), errors.Code(err) or
// errors.HTTPStatusCode(err).
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"reflect"
	"runtime"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/runtime/protoiface"
)

// The maximum number of stackframes on any error.
var MaxStackDepth = 50

// Error is an error with an attached stacktrace. It can be used
// wherever the builtin error interface is expected.
type Error struct {
	Err    error
	stack  []uintptr
	frames []StackFrame
	prefix string

	// gRPC status code to associate with an error response.
	code codes.Code

	// Error details which gRPC returns the client.
	details []protoiface.MessageV1

	// HTTP status code to associate with an error response.
	httpStatusCode int

	// Error message to return to client.
	publicMessage string
}

// New makes an Error from the given value. If that value is already an
// error then it will be used directly, if not, it will be passed to
// fmt.Errorf("%v"). The stacktrace will point to the line of code that
// called New.
func New(e any) *Error {
	return newC(e, codes.Unknown, 1)
}

// NewC makes an Error with a status code defined.
func NewC(e any, code codes.Code) *Error {
	return newC(e, code, 1)
}

// Codef formats a new error with the given status code.
func Codef(code codes.Code, format string, a ...any) *Error {
	return newC(fmt.Errorf(format, a...), code, 1)
}

func newC(e any, code codes.Code, skip int) *Error {
	var err error
	switch e := e.(type) {
	case error:
		err = e
	default:
		err = fmt.Errorf("%v", e)
	}

	stack := make([]uintptr, MaxStackDepth)
	length := runtime.Callers(2+skip, stack[:])
	return &Error{
		Err:   err,
		stack: stack[:length],
		code:  code,
	}
}

// Wrap makes an Error from the given value. If that value is already an
// *Error it is returned unchanged. The skip parameter indicates how far up the
// stack to start the stacktrace. 0 is from the current call, 1 from its
// caller, etc.
func Wrap(e any, skip int) *Error {
	if e == nil {
		return nil
	}

	var err error

	switch e := e.(type) {
	case *Error:
		return e
	case error:
		err = e
	default:
		err = fmt.Errorf("%v", e)
	}

	stack := make([]uintptr, MaxStackDepth)
	length := runtime.Callers(2+skip, stack[:])
	return &Error{
		Err:   err,
		stack: stack[:length],
		code:  codes.Unknown,
	}
}

// MaybeWrap is like Wrap but returns a nil error interface when e is nil.
func MaybeWrap(e error, skip int) error {
	if e == nil {
		return nil
	}
	return Wrap(e, 1+skip)
}

// WrapPrefix is like Wrap but prefixes the error message.
func WrapPrefix(e any, prefix string, skip int) *Error {
	if e == nil {
		return nil
	}

	err := Wrap(e, 1+skip)

	if err.prefix != "" {
		prefix = fmt.Sprintf("%s: %s", prefix, err.prefix)
	}

	return &Error{
		Err:            err.Err,
		stack:          err.stack,
		code:           err.code,
		details:        cloneDetails(err.details),
		httpStatusCode: err.httpStatusCode,
		publicMessage:  err.publicMessage,
		prefix:         prefix,
	}
}

// Mark takes an error and sets the stack trace from the point it was called,
// overriding any previous stack trace. Use it when returning sentinel errors
// so the trace points at the return site rather than package init.
func Mark(e any, skip int) *Error {
	if e == nil {
		return nil
	}
	if err, ok := e.(*Error); ok {
		stack := make([]uintptr, MaxStackDepth)
		length := runtime.Callers(2+skip, stack[:])
		return &Error{
			Err:            err,
			stack:          stack[:length],
			code:           err.code,
			details:        cloneDetails(err.details),
			httpStatusCode: err.httpStatusCode,
			publicMessage:  err.publicMessage,
		}
	}
	return Wrap(e, 1+skip)
}

// Copies never share a backing array with the error they came from, so
// WithDetails on a marked sentinel leaves the sentinel alone.
func cloneDetails(details []protoiface.MessageV1) []protoiface.MessageV1 {
	if len(details) == 0 {
		return nil
	}
	return append([]protoiface.MessageV1(nil), details...)
}

// WithPublicMessage returns a copy of err carrying a client facing message.
func WithPublicMessage(err error, publicMessage string) *Error {
	if err == nil {
		return nil
	}
	return Mark(err, 1).WithPublicMessage(publicMessage)
}

// WithCode returns a copy of err carrying a gRPC status code.
func WithCode(err error, code codes.Code) *Error {
	if err == nil {
		return nil
	}
	return Mark(err, 1).WithCode(code)
}

// WithHTTPStatusCode returns a copy of err carrying an explicit HTTP status,
// overriding the one mapped from the gRPC code.
func WithHTTPStatusCode(err error, code int) *Error {
	if err == nil {
		return nil
	}
	return Mark(err, 1).WithHTTPStatusCode(code)
}

// WithDetails returns a copy of err carrying gRPC details.
func WithDetails(err error, details ...protoiface.MessageV1) *Error {
	if err == nil {
		return nil
	}
	return Mark(err, 1).WithDetails(details...)
}

// Errorf creates a new error with the given message. You can use it
// as a drop-in replacement for fmt.Errorf() to provide descriptive
// errors in return values.
func Errorf(format string, a ...any) *Error {
	return Wrap(fmt.Errorf(format, a...), 1)
}

// Error returns the underlying error's message.
func (err *Error) Error() string {
	msg := err.Err.Error()
	if err.prefix != "" {
		msg = fmt.Sprintf("%s: %s", err.prefix, msg)
	}
	return msg
}

// Stack returns the callstack formatted the same way that go does
// in runtime/debug.Stack().
func (err *Error) Stack() []byte {
	buf := bytes.Buffer{}
	for _, frame := range err.StackFrames() {
		buf.WriteString(frame.String())
	}
	return buf.Bytes()
}

// MinimalStack returns at most n frames, starting skip frames in, as
// "file:line" strings. Used for log lines.
func (err *Error) MinimalStack(skip, n int) []string {
	frames := err.StackFrames()
	var out []string
	for i := skip; i < len(frames) && len(out) < n; i++ {
		out = append(out, fmt.Sprintf("%s:%d", frames[i].File, frames[i].LineNumber))
	}
	return out
}

// Callers satisfies the bugsnag ErrorWithCallerS() interface
// so that the stack can be read out.
func (err *Error) Callers() []uintptr {
	return err.stack
}

// ErrorStack returns a string that contains both the
// error message and the callstack.
func (err *Error) ErrorStack() string {
	return err.TypeName() + " " + err.Error() + "\n" + string(err.Stack())
}

// StackFrames returns an array of frames containing information about the
// stack.
func (err *Error) StackFrames() []StackFrame {
	if err.frames == nil {
		err.frames = make([]StackFrame, len(err.stack))
		for i, pc := range err.stack {
			err.frames[i] = NewStackFrame(pc)
		}
	}
	return err.frames
}

// TypeName returns the type this error. e.g. *errors.stringError.
func (err *Error) TypeName() string {
	return reflect.TypeOf(err.Err).String()
}

// Unwrap the error (implements api for As function).
func (err *Error) Unwrap() error {
	return err.Err
}

// Code returns the gRPC status code associated with the error.
func (err *Error) Code() codes.Code {
	return err.code
}

// WithCode sets the gRPC status code associated with the error.
func (err *Error) WithCode(code codes.Code) *Error {
	err.code = code
	return err
}

// Details returns the gRPC details associated with the error.
func (err *Error) Details() []protoiface.MessageV1 {
	return err.details
}

// WithDetails sets the gRPC details associated with the error.
func (err *Error) WithDetails(details ...protoiface.MessageV1) *Error {
	err.details = append(err.details, details...)
	return err
}

// HTTPStatusCode returns the HTTP status code that should be returned to the
// client. If a code is set, it will be used, otherwise a default will be
// returned based on the gRPC code.
func (err *Error) HTTPStatusCode() int {
	if err.httpStatusCode != 0 {
		return err.httpStatusCode
	}
	switch err.code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WithHTTPStatusCode sets the HTTP status code that should be returned to the
// client.
func (err *Error) WithHTTPStatusCode(code int) *Error {
	err.httpStatusCode = code
	return err
}

// PublicMessage returns the error string that should be returned to the client.
func (err *Error) PublicMessage() string {
	if err.publicMessage != "" {
		return err.publicMessage
	}
	return err.Error()
}

// WithPublicMessage sets the error string that should be returned to the client.
func (err *Error) WithPublicMessage(publicMessage string) *Error {
	err.publicMessage = publicMessage
	return err
}

// GRPCStatus returns a gRPC status object for the error.
func (err *Error) GRPCStatus() *status.Status {
	st := status.New(err.Code(), err.PublicMessage())
	if len(err.details) > 0 {
		st, _ = st.WithDetails(err.details...)
	}
	return st
}

// Code returns a gRPC status code for an error. If the error is nil, it returns
// codes.OK. If any error in the chain exposes a `Code()` method, it is
// returned. Otherwise codes.Unknown is returned.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var ce codedError
	if As(err, &ce) {
		return ce.Code()
	}
	return codes.Unknown
}

// HTTPStatusCode returns an HTTP status code for an error. If the error is nil,
// it returns http.StatusOK. If any error in the chain exposes a
// `HTTPStatusCode()` method, it is returned. Otherwise
// http.StatusInternalServerError is returned.
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var he httpError
	if As(err, &he) {
		return he.HTTPStatusCode()
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the client facing message for an error.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *Error
	if As(err, &pe) {
		return pe.PublicMessage()
	}
	return err.Error()
}

type codedError interface {
	Code() codes.Code
}

type httpError interface {
	HTTPStatusCode() int
}
