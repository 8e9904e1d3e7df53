package testutil

import (
	"net/http"

	"medadmit/pkg/requestcontext"
)

// WithClientIP sets the client address the metadata middleware would have
// extracted, for handlers and rate-limit middleware under test.
func WithClientIP(req *http.Request, ip string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, req.UserAgent())
	return req.WithContext(ctx)
}

// WithRequestID sets the request ID the request middleware would have assigned.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
