package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/vidshare/backend/internal/apperrors"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/response"
)

// AccessTokenCookie is the cookie carrying the access token.
const AccessTokenCookie = "accessToken"

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (auth.Claims, error)
}

// Authenticate requires a valid access token, read from the Authorization
// bearer header or the access token cookie, and attaches the caller's
// identity to the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := accessToken(r)
			if token == "" {
				response.Error(ctx, w, apperrors.Unauthorized("unauthorized request"))
				return
			}

			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				logging.FromContext(ctx).Debug("access token rejected", slog.Any("error", err))
				response.Error(ctx, w, apperrors.Unauthorized("invalid access token"))
				return
			}

			ctx = auth.WithIdentity(ctx, auth.Identity{
				AccountID: claims.Subject,
				Handle:    claims.Handle,
				Email:     claims.Email,
			})
			ctx = logging.With(ctx, slog.String("account_id", claims.Subject))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		if value := strings.TrimSpace(cookie.Value); value != "" {
			return value
		}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}
