package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
)

var errDenied = NewC("not allowed", codes.PermissionDenied)

func TestCode(t *testing.T) {
	assert.Equal(t, codes.OK, Code(nil))

	err := fmt.Errorf("store offline")
	assert.Equal(t, codes.Unknown, Code(err))

	err = WithCode(err, codes.Unavailable)
	assert.Equal(t, codes.Unavailable, Code(err))

	err = WrapPrefix(err, "profiles", 0)
	assert.Equal(t, codes.Unavailable, Code(err), "prefix keeps the code")

	wrapped := fmt.Errorf("%w: while resolving role", errDenied)
	assert.Equal(t, codes.PermissionDenied, Code(wrapped), "code survives fmt wrapping")
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
		{NewC("who are you", codes.Unauthenticated), http.StatusUnauthorized},
		{errDenied, http.StatusForbidden},
		{NewC("missing", codes.NotFound), http.StatusNotFound},
		{NewC("dupe", codes.AlreadyExists), http.StatusConflict},
		{NewC("bad", codes.InvalidArgument), http.StatusBadRequest},
		{WithHTTPStatusCode(errDenied, http.StatusNotFound), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusCode(tt.err), "%v", tt.err)
	}
}

func TestCodef(t *testing.T) {
	err := Codef(codes.PermissionDenied, "role %q may not %s", "user", "refund")
	assert.Equal(t, `role "user" may not refund`, err.Error())
	assert.Equal(t, codes.PermissionDenied, err.Code())
}

func TestPrefix(t *testing.T) {
	err := WrapPrefix(fmt.Errorf("no rows"), "profiles", 0)
	assert.Equal(t, "profiles: no rows", err.Error())

	err = WrapPrefix(err, "guard", 0)
	assert.Equal(t, "guard: profiles: no rows", err.Error())
}

func TestGRPCStatus(t *testing.T) {
	badRequest := &errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: "role", Description: "unknown role"},
		},
	}

	err := NewC("invalid role", codes.InvalidArgument).WithDetails(badRequest)
	st := err.GRPCStatus()
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Equal(t, "invalid role", st.Message())
	assert.Equal(t, "role", st.Details()[0].(*errdetails.BadRequest).FieldViolations[0].Field)
}

func TestPublicMessage(t *testing.T) {
	err := New("row 7 has role 'owner'")
	assert.Equal(t, "row 7 has role 'owner'", err.GRPCStatus().Message())

	pub := WithPublicMessage(err, "internal error")
	assert.Equal(t, "internal error", pub.GRPCStatus().Message())
	assert.Equal(t, "internal error", PublicMessage(fmt.Errorf("%w", pub)))
	assert.Equal(t, "row 7 has role 'owner'", err.PublicMessage(), "original is untouched")
}

func TestMark(t *testing.T) {
	marked := Mark(errDenied, 0)

	assert.True(t, Is(marked, errDenied))
	assert.Equal(t, codes.PermissionDenied, Code(marked))
	assert.NotEqual(t, errDenied.Callers(), marked.Callers())
	assert.NotEmpty(t, marked.MinimalStack(0, 3))
	assert.LessOrEqual(t, len(marked.MinimalStack(0, 3)), 3)
}

func TestMarkDoesNotShareDetails(t *testing.T) {
	sentinel := NewC("quota exceeded", codes.ResourceExhausted)
	sentinel.WithDetails(&errdetails.ErrorInfo{Reason: "a"})
	sentinel.WithDetails(&errdetails.ErrorInfo{Reason: "b"})
	sentinel.WithDetails(&errdetails.ErrorInfo{Reason: "c"})
	require.Len(t, sentinel.Details(), 3)

	first := Mark(sentinel, 0).WithDetails(&errdetails.ErrorInfo{Reason: "first"})
	second := Mark(sentinel, 0).WithDetails(&errdetails.ErrorInfo{Reason: "second"})

	assert.Len(t, sentinel.Details(), 3)
	assert.Equal(t, "first", first.Details()[3].(*errdetails.ErrorInfo).Reason)
	assert.Equal(t, "second", second.Details()[3].(*errdetails.ErrorInfo).Reason)

	prefixed := WrapPrefix(sentinel, "billing", 0).WithDetails(&errdetails.ErrorInfo{Reason: "prefixed"})
	assert.Equal(t, "first", first.Details()[3].(*errdetails.ErrorInfo).Reason)
	assert.Len(t, prefixed.Details(), 4)
}

type keyedError struct {
	Key string
	Err error
}

func (e keyedError) Error() string {
	return "[" + e.Key + "]: " + e.Err.Error()
}

func (e keyedError) Is(target error) bool {
	matched, ok := target.(keyedError)
	return ok && matched.Key == e.Key
}

func TestIs(t *testing.T) {
	plain := fmt.Errorf("just a regular error")
	keyed := keyedError{Key: "rbac", Err: io.EOF}
	same := keyedError{Key: "rbac"}
	other := keyedError{Key: "profiles"}

	tests := []struct {
		name     string
		target   error
		original error
		want     bool
	}{
		{"same key", keyed, same, true},
		{"different key", keyed, other, false},
		{"same key, wrapped target", Wrap(keyed, 0), same, true},
		{"different key, wrapped target", Wrap(keyed, 0), other, false},
		{"same key, wrapped original", keyed, Wrap(same, 0), true},
		{"both wrapped", Wrap(keyed, 0), Wrap(same, 0), true},
		{"regular error", plain, plain, true},
		{"regular error, wrapped target", Wrap(plain, 0), plain, true},
		{"regular error, wrapped original", plain, Wrap(plain, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Is(tt.target, tt.original))
		})
	}
}

func TestMaybeWrap(t *testing.T) {
	assert.NoError(t, MaybeWrap(nil, 0))

	base := stderrors.New("disk full")
	err := MaybeWrap(base, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, codes.Unknown, Code(err))
}
