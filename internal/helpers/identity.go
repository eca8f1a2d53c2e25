package helpers

import (
	"net"
	"strings"
)

// ClientIdentity derives the rate-limiting identity for a request. The
// identity is the bare client IP from remoteAddr, or the first hop of the
// X-Forwarded-For header when the deployment sits behind a trusted proxy.
// Forwarded headers are trivially spoofable; trustProxy must only be set
// when an upstream proxy strips client-supplied values.
func ClientIdentity(remoteAddr string, headers map[string]string, trustProxy bool) string {
	if trustProxy {
		if fwd := headers["x-forwarded-for"]; fwd != "" {
			if first, _, ok := strings.Cut(fwd, ","); ok {
				return strings.TrimSpace(first)
			}
			return strings.TrimSpace(fwd)
		}
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	if remoteAddr == "" {
		return "unknown"
	}
	return remoteAddr
}
