package middleware

import (
	"net"
	"net/http"

	goPrereg "github.com/MrEthical07/goPrereg"
)

// RequireEnabled rejects requests with 503 while engine is nil or disabled.
func RequireEnabled(engine *goPrereg.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil || !engine.Enabled() {
				http.Error(w, "pre-registration is disabled", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP tags the request context with the host part of RemoteAddr. Put a
// proxy-aware middleware such as chi's RealIP in front of it.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(goPrereg.WithClientIP(r.Context(), host)))
	})
}
