package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"medadmit/pkg/requestcontext"
)

// ClientMetadata extracts the client IP, User-Agent and caller kind from the
// request and stores them in the context. Rate limiting keys off the IP, so
// this must run before the rate limit middleware.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), ua)
		ctx = requestcontext.WithCaller(ctx, ClassifyUserAgent(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClassifyUserAgent buckets a User-Agent header into a caller kind.
func ClassifyUserAgent(header string) requestcontext.CallerKind {
	if strings.TrimSpace(header) == "" {
		return requestcontext.CallerUnknown
	}
	ua := useragent.New(header)
	switch {
	case ua.Bot():
		return requestcontext.CallerBot
	case ua.Mozilla() != "":
		return requestcontext.CallerBrowser
	default:
		return requestcontext.CallerClient
	}
}

// ClientIPFromRequest extracts the originating client IP, honoring
// X-Forwarded-For and X-Real-IP set by the fronting proxy.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AnonymizeIP truncates an address for logging: the last octet of IPv4 and
// the last 80 bits of IPv6 are zeroed.
func AnonymizeIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return parsed.Mask(net.CIDRMask(48, 128)).String()
}
