package middleware

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

func Cors(allowedOrigins []string) func(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			userAgent := r.Header.Get("User-Agent")

			switch {
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Headers",
					"Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, "+HeaderToken+", "+HeaderUserID,
				)
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
			case origin == "" && isAppClient(userAgent):
				// native clients do not send an origin
			default:
				log.Warnf("CORS: origin not allowed for path [%s] and origin [%s] [UA: %s]", r.URL.Path, origin, userAgent)
				w.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isAppClient(userAgent string) bool {
	return strings.HasPrefix(userAgent, "EdgeTimer/") ||
		strings.HasPrefix(userAgent, "Go-http-client/") ||
		strings.HasPrefix(userAgent, "curl/") ||
		strings.HasPrefix(userAgent, "test-agent")
}
