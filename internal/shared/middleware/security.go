package middleware

import (
	"net"
	"net/http"
	"strings"
)

// hstsPolicy is sent on every response once the API is served over TLS.
const hstsPolicy = "max-age=31536000; includeSubDomains"

// HSTS tells browsers to use HTTPS for this host from now on.
func HSTS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", hstsPolicy)
		next.ServeHTTP(w, r)
	})
}

// SecureCookies hardens every cookie the wrapped handler sets, such as the
// session cookie, right before the headers are flushed: Secure and HttpOnly
// are forced, and SameSite falls back to Lax when the handler left it unset.
func SecureCookies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&cookieHardener{ResponseWriter: w}, r)
	})
}

type cookieHardener struct {
	http.ResponseWriter
	flushed bool
}

func (h *cookieHardener) Write(b []byte) (int, error) {
	h.harden()
	return h.ResponseWriter.Write(b)
}

func (h *cookieHardener) WriteHeader(statusCode int) {
	h.harden()
	h.ResponseWriter.WriteHeader(statusCode)
}

func (h *cookieHardener) harden() {
	if h.flushed {
		return
	}
	h.flushed = true

	header := h.ResponseWriter.Header()
	raw := header.Values("Set-Cookie")
	if len(raw) == 0 {
		return
	}

	hardened := make([]string, 0, len(raw))
	for _, line := range raw {
		hardened = append(hardened, hardenCookie(line))
	}
	header["Set-Cookie"] = hardened
}

// hardenCookie rewrites one Set-Cookie value. Lines that do not parse are
// kept as they are.
func hardenCookie(line string) string {
	cookie, err := http.ParseSetCookie(line)
	if err != nil {
		return line
	}

	cookie.Secure = true
	cookie.HttpOnly = true
	if cookie.SameSite == http.SameSiteDefaultMode {
		cookie.SameSite = http.SameSiteLaxMode
	}
	return cookie.String()
}

// IsHostAllowed validates a host against the allowed hosts list.
// Used to avoid redirect poisoning when redirecting HTTP to HTTPS.
// Returns true if no allowed hosts are configured.
func IsHostAllowed(host string, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}

	host = strings.ToLower(strings.TrimSpace(host))
	hostname := hostWithoutPort(host)

	for _, allowedHost := range allowedHosts {
		allowedHost = strings.ToLower(strings.TrimSpace(allowedHost))
		if host == allowedHost || hostname == hostWithoutPort(allowedHost) {
			return true
		}
	}

	return false
}

func hostWithoutPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}
