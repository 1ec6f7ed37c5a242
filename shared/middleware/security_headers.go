package middleware

import "net/http"

// SecurityHeadersWithCSP sets the baseline security headers for the API.
// The surface is JSON plus a websocket upgrade, so the CSP can be as strict
// as the router wants; an empty csp sets no CSP header. hsts enables
// Strict-Transport-Security and should track whether the deployment
// terminates TLS.
func SecurityHeadersWithCSP(hsts bool, csp string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers := w.Header()

			// The API never renders in a frame.
			headers.Set("X-Frame-Options", "DENY")
			headers.Set("X-Content-Type-Options", "nosniff")
			headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			headers.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if csp != "" {
				headers.Set("Content-Security-Policy", csp)
			}
			if hsts {
				headers.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
