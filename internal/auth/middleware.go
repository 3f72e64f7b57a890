package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

const (
	sessionEmailKey = "email"
	sessionNameKey  = "name"
)

// Middleware attaches the authenticated principal to the request context.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// Principal resolves the caller from a bearer token, falling back to the
// cookie session. A bad token is rejected outright rather than downgraded
// to an anonymous request.
func (m Middleware) Principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if raw, ok := bearerToken(r); ok {
			claims, err := m.Service.ParseToken(raw)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Debug("bearer token rejected", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
				return
			}
			ctx = shared.ContextWithPrincipal(ctx, shared.Principal{
				UserID: claims.UserID,
				Role:   claims.Role,
				Token:  true,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		if sess := shared.SessionFromContext(ctx); sess != nil && sess.User() != "" {
			ctx = shared.ContextWithPrincipal(ctx, shared.Principal{
				UserID: sess.User(),
				Role:   sess.Role(),
				Email:  sess.Get(sessionEmailKey),
				Name:   sess.Get(sessionNameKey),
			})
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
