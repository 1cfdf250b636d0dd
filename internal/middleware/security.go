package middleware

import (
	"net/http"
)

// Content security policies.
const (
	// APIContentSecurityPolicy suits JSON and file responses.
	APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"
	// PageContentSecurityPolicy allows the dashboard's own inline script and styles.
	PageContentSecurityPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; " +
		"style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'"
)

// SecurityConfig holds configuration for security headers.
type SecurityConfig struct {
	// IsDevelopment disables HSTS in dev environments.
	IsDevelopment bool
	// ContentSecurityPolicy defaults to APIContentSecurityPolicy.
	ContentSecurityPolicy string
}

// Security returns a middleware that applies security headers to all responses.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	csp := cfg.ContentSecurityPolicy
	if csp == "" {
		csp = APIContentSecurityPolicy
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", csp)
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()")

			if !cfg.IsDevelopment {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			// Device inventories carry personal data.
			h.Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}
