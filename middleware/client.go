package middleware

import (
	"net"
	"net/http"
	"strings"

	goReset "github.com/MrEthical07/goReset"
)

// ClientInfo stores the client IP and User-Agent in the request context.
// With trustForwarded set, the first X-Forwarded-For entry (or X-Real-IP)
// wins over the socket address.
func ClientInfo(trustForwarded bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if ip := ClientIP(r, trustForwarded); ip != "" {
				ctx = goReset.WithClientIP(ctx, ip)
			}
			if ua := r.UserAgent(); ua != "" {
				ctx = goReset.WithUserAgent(ctx, ua)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the best-known client address of r.
func ClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if ip := forwardedIP(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return parseIP(host)
}

func forwardedIP(value string) string {
	if value == "" {
		return ""
	}
	first, _, _ := strings.Cut(value, ",")
	return parseIP(first)
}

func parseIP(value string) string {
	ip := net.ParseIP(strings.TrimSpace(value))
	if ip == nil {
		return ""
	}
	return ip.String()
}
