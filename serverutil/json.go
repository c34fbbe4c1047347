// Package serverutil holds HTTP and gRPC helpers shared by the guard and the
// server.
package serverutil

import (
	"encoding/json"
	"net/http"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/logging"

	"google.golang.org/genproto/googleapis/rpc/code"
	"google.golang.org/grpc/codes"
)

// ErrorResponse is the body written for failed requests. It mirrors the shape
// the gRPC gateway uses for statuses.
type ErrorResponse struct {
	Code     int32  `json:"code"`
	CodeName string `json:"codeName"`
	Message  string `json:"message"`
}

// JSONHandler is an HTTP handler whose result is encoded as JSON. Errors are
// written with WriteError.
type JSONHandler func(req *http.Request) (any, error)

func (fn JSONHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp, err := fn(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "error encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

// WriteError writes err as an ErrorResponse, using the HTTP status mapped from
// its code. Only the public message is exposed.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logging.Errorw(r.Context(), "serverutil: request failed", "error", err,
			"req.method", r.Method, "req.url", r.URL.String())
	}

	c := int32(errors.Code(err))
	msg := errors.PublicMessage(err)
	if errors.Code(err) == codes.Unknown || errors.Code(err) == codes.Internal {
		msg = http.StatusText(status)
	}
	WriteJSON(w, status, ErrorResponse{
		Code:     c,
		CodeName: code.Code_name[c],
		Message:  msg,
	})
}
