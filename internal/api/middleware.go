package api

import (
	"context"
	"net/http"
	"strings"

	"telecast/internal/auth"
	"telecast/internal/model"
)

type ctxKey int

const (
	ctxOperatorID ctxKey = iota
	ctxOperatorRole
)

// TokenParser validates an access token. Satisfied by *auth.Service.
type TokenParser interface {
	ParseAccess(raw string) (*auth.Claims, error)
}

// requireAuth rejects requests without a valid bearer token and stores the
// operator's identity in the request context.
func requireAuth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := parser.ParseAccess(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ctxOperatorID, claims.Subject)
			ctx = context.WithValue(ctx, ctxOperatorRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin sits behind requireAuth and gates administration endpoints.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if operatorRole(r) != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

func operatorID(r *http.Request) string {
	id, _ := r.Context().Value(ctxOperatorID).(string)
	return id
}

func operatorRole(r *http.Request) model.Role {
	role, _ := r.Context().Value(ctxOperatorRole).(model.Role)
	return role
}
