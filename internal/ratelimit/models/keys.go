package models

import (
	"fmt"
	"strings"
)

// KeyPrefix namespaces bucket keys by what is being limited.
type KeyPrefix string

const (
	KeyPrefixIP KeyPrefix = "ip"
)

// RateLimitKey identifies one sliding-window bucket.
type RateLimitKey struct {
	Prefix     KeyPrefix
	Identifier string
	Class      EndpointClass
}

func NewRateLimitKey(prefix KeyPrefix, identifier string, class EndpointClass) RateLimitKey {
	return RateLimitKey{Prefix: prefix, Identifier: identifier, Class: class}
}

// String renders "ratelimit:<prefix>:<identifier>:<class>".
func (k RateLimitKey) String() string {
	return fmt.Sprintf("ratelimit:%s:%s:%s", k.Prefix, SanitizeKeySegment(k.Identifier), k.Class)
}

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// so an identifier containing ':' cannot address a neighbouring bucket.
// IPv6 addresses are the common case.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
