package origin

import (
	"net/http"
	"net/url"
	"strings"
)

// Resolver picks the callback origin for one submission.
type Resolver struct {
	// Configured is the fallback application URL. Empty means unset.
	Configured string
	// Allowed restricts which ambient origins are honored. When empty, only
	// Configured is honored, or any origin if Configured is unset or AnyOrigin
	// is set.
	Allowed []string
	// AnyOrigin honors every ambient origin when Allowed is empty.
	AnyOrigin bool
}

// Resolve returns the origin to use and whether one could be resolved.
func (r Resolver) Resolve(ambient string) (string, bool) {
	if o := normalize(ambient); o != "" && r.allowed(o) {
		return o, true
	}
	return Resolve("", r.Configured)
}

func (r Resolver) allowed(o string) bool {
	allowed := r.Allowed
	if len(allowed) == 0 {
		configured := normalize(r.Configured)
		if configured == "" || r.AnyOrigin {
			return true
		}
		allowed = []string{configured}
	}
	for _, candidate := range allowed {
		if strings.EqualFold(normalize(candidate), o) {
			return true
		}
	}
	return false
}

// Resolve prefers ambient over configured. Both empty yields ("", false).
func Resolve(ambient, configured string) (string, bool) {
	if o := normalize(ambient); o != "" {
		return o, true
	}
	if o := normalize(configured); o != "" {
		return o, true
	}
	return "", false
}

// CallbackURL joins origin and path with exactly one slash between them.
func CallbackURL(origin, path string) string {
	origin = strings.TrimRight(origin, "/")
	if path == "" {
		return origin
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return origin + path
}

// FromRequest derives the ambient origin of r. The Origin header wins; the
// request's own scheme and host are used otherwise. Forwarded headers are only
// consulted when trustForwarded is set.
func FromRequest(r *http.Request, trustForwarded bool) string {
	if r == nil {
		return ""
	}
	if o := normalize(r.Header.Get("Origin")); o != "" {
		return o
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if trustForwarded {
		if p := firstValue(r.Header.Get("X-Forwarded-Proto")); p != "" {
			scheme = strings.ToLower(p)
		}
		if h := firstValue(r.Header.Get("X-Forwarded-Host")); h != "" {
			host = h
		}
	}
	if host == "" {
		return ""
	}
	return normalize(scheme + "://" + host)
}

// normalize returns scheme://host[:port][/path] for absolute http(s) URLs, or "" for
// anything else (including the literal "null" origin browsers send).
func normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" || u.User != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host + strings.TrimRight(u.EscapedPath(), "/")
}

func firstValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
