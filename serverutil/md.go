package serverutil

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// BearerToken strips an optional "Bearer " prefix from an authorization
// header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// IncomingHeader returns the first value of a gRPC metadata key from an
// incoming context. Keys are case insensitive.
func IncomingHeader(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(strings.ToLower(key)); len(v) > 0 {
		return v[0]
	}
	return ""
}
