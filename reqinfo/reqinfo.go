// Package reqinfo holds the cheap, stateless request classification used
// to decide whether the inspection pipeline should run at all, plus the
// client IP extraction every other component keys on.
package reqinfo

import (
	"net"
	"net/http"
	"strings"
)

// Cookie names whose presence marks an authenticated session. Values are
// never read or decoded here, only presence is observed.
const (
	SessionCookieName = "next-auth.session-token"
	CSRFCookieName    = "next-auth.csrf-token"
)

var supportedLocales = []string{"es", "en"}

// DefaultLocale prefixes paths that arrive without a locale segment.
const DefaultLocale = "es"

var systemPrefixes = []string{
	"/_next/", "/static/", "/assets/", "/images/", "/fonts/",
	"/metrics", "/healthz",
}

var systemFiles = map[string]bool{
	"/favicon.ico": true, "/robots.txt": true, "/sitemap.xml": true,
	"/manifest.json": true,
}

var authPrefixes = []string{"/dashboard", "/admin"}

// ClientIP resolves the request's client address: first hop of
// x-forwarded-for, then x-real-ip, then the socket peer.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("x-forwarded-for"); fwd != "" {
		first := fwd
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			first = fwd[:i]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if real := r.Header.Get("x-real-ip"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IsSystemPath reports whether path is framework or asset plumbing the
// security pipeline skips entirely.
func IsSystemPath(path string) bool {
	if systemFiles[path] {
		return true
	}
	for _, p := range systemPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// NeedsAuth reports whether path sits behind the application's login,
// with or without a locale prefix.
func NeedsAuth(path string) bool {
	stripped := StripLocale(path)
	for _, p := range authPrefixes {
		if stripped == p || strings.HasPrefix(stripped, p+"/") {
			return true
		}
	}
	return false
}

// HasLocale reports whether path starts with a supported locale segment.
func HasLocale(path string) bool {
	for _, loc := range supportedLocales {
		if path == "/"+loc || strings.HasPrefix(path, "/"+loc+"/") {
			return true
		}
	}
	return false
}

// StripLocale removes a leading locale segment if present.
func StripLocale(path string) string {
	for _, loc := range supportedLocales {
		if path == "/"+loc {
			return "/"
		}
		if strings.HasPrefix(path, "/"+loc+"/") {
			return path[len(loc)+1:]
		}
	}
	return path
}

// LocaleRedirect returns the locale-prefixed target for a path missing
// its locale segment, and whether a redirect applies. System paths and
// API routes are never redirected.
func LocaleRedirect(path string) (string, bool) {
	if IsSystemPath(path) || strings.HasPrefix(path, "/api/") || HasLocale(path) {
		return "", false
	}
	if path == "/" {
		return "/" + DefaultLocale, true
	}
	return "/" + DefaultLocale + path, true
}

// SessionFlags reports presence of the session and CSRF cookies.
func SessionFlags(r *http.Request) (hasSession, hasCSRF bool) {
	for _, c := range r.Cookies() {
		switch c.Name {
		case SessionCookieName:
			hasSession = true
		case CSRFCookieName:
			hasCSRF = true
		}
	}
	return hasSession, hasCSRF
}
