package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ticketera/common/auth"
	"ticketera/common/errs"
	"ticketera/model"
)

func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, "request timeout")
	}
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type claimsCtxKey struct{}

// RequireRoles authenticates the bearer token and gates the handler on the
// caller's role. Claims land in the request context for ownership checks.
func RequireRoles(secret string, next http.HandlerFunc, roles ...model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeErrorResponse(w, &errs.HttpError{Code: http.StatusUnauthorized, Message: "Missing token"})
			return
		}

		claims, err := auth.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeErrorResponse(w, &errs.HttpError{Code: http.StatusUnauthorized, Message: "Invalid token"})
			return
		}

		allowed := len(roles) == 0
		for _, role := range roles {
			if claims.Role == role {
				allowed = true
				break
			}
		}

		if !allowed {
			writeErrorResponse(w, &errs.HttpError{Code: http.StatusForbidden, Message: "Forbidden"})
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsCtxKey{}, claims)))
	}
}

func claimsFromCtx(ctx context.Context) auth.Claims {
	claims, _ := ctx.Value(claimsCtxKey{}).(auth.Claims)
	return claims
}
