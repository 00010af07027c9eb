package authmiddleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/zanzhit/flameguard/internal/domain/models"
	"github.com/zanzhit/flameguard/internal/http-server/handlers"
	"github.com/zanzhit/flameguard/internal/lib/api/response"
	jwtmid "github.com/zanzhit/flameguard/internal/lib/jwt"
)

type contextKey string

const (
	OperatorContextKey contextKey = "operator"

	TokenCookie = "token"
)

// JWTAuth accepts a bearer token or the token cookie set at login.
func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearer(r)
			if tokenString == "" {
				handlers.Error(w, r, http.StatusUnauthorized, response.Error("unauthorized", middleware.GetReqID(r.Context())))
				return
			}

			operator, err := jwtmid.ParseToken(tokenString, secret)
			if err != nil {
				handlers.Error(w, r, http.StatusUnauthorized, response.Error("unauthorized", middleware.GetReqID(r.Context())))
				return
			}

			ctx := context.WithValue(r.Context(), OperatorContextKey, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Operator(ctx context.Context) (models.Operator, bool) {
	op, ok := ctx.Value(OperatorContextKey).(models.Operator)
	return op, ok
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}

	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}

	return ""
}
