package middleware

import (
	"context"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"

	"github.com/2beens/edgetrack/internal/auth"
	"github.com/2beens/edgetrack/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=middleware_test

const (
	HeaderToken  = "X-Edge-Token"
	HeaderUserID = "X-User-Id"
)

type tokenChecker interface {
	IsAllowed(ctx context.Context, token string) (bool, error)
}

type AuthMiddlewareHandler struct {
	checker      tokenChecker
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(checker tokenChecker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		checker: checker,
		allowedPaths: map[string]bool{
			"/":        true,
			"/version": true,
			"/health":  true,
		},
	}
}

// AuthCheck lets a request through when it carries the app token. The user id
// header is then stored in the request context for the handlers.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			authToken := r.Header.Get(HeaderToken)
			if authToken == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			allowed, err := h.checker.IsAllowed(ctx, authToken)
			if err != nil {
				log.Errorf("[failed token check] => %s: %s", r.URL.Path, err)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "check-token-err")
				span.RecordError(err)
				return
			}
			if !allowed {
				log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "invalid-token")
				return
			}

			userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if userID == "" {
				http.Error(w, "error, user id missing", http.StatusBadRequest)
				span.SetStatus(codes.Error, "missing-user-id")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(ctx, userID)))
		})
	}
}
