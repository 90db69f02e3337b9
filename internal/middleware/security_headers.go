package middleware

import "net/http"

// SecurityHeadersConfig holds security headers configuration
type SecurityHeadersConfig struct {
	Env string
}

// apiCSP is served in production; responses are JSON and never render markup
const apiCSP = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'"

// devCSP lets local tooling load the API from other origins
const devCSP = "default-src 'self' http: https: ws:; img-src 'self' data: https: http:; frame-ancestors 'self'"

// SecurityHeaders returns a middleware that adds security headers to all responses
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	production := config.Env == "production"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("X-DNS-Prefetch-Control", "off")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=(), usb=()")

			if production {
				h.Set("Content-Security-Policy", apiCSP)
				// HSTS only over TLS, which arrives through the proxy
				if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
					h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
				}
			} else {
				h.Set("Content-Security-Policy", devCSP)
			}

			next.ServeHTTP(w, r)
		})
	}
}
