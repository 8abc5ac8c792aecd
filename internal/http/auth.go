package httpapi

import (
	"context"
	"net/http"
	"strings"

	"fitcoach-backend-go/internal/models"
	"fitcoach-backend-go/internal/services"
)

type contextKey string

const (
	ctxUserID contextKey = "userID"
	ctxEmail  contextKey = "email"
	ctxUser   contextKey = "user"
)

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func WithAuth(tokenService services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				WriteError(w, http.StatusUnauthorized, "Access token required")
				return
			}
			claims, err := tokenService.Parse(tokenStr, services.TokenTypeAccess)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserID, claims.Subject)
			ctx = context.WithValue(ctx, ctxEmail, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func CurrentUserID(r *http.Request) string {
	if value, ok := r.Context().Value(ctxUserID).(string); ok {
		return value
	}
	return ""
}

// currentUser returns the user loaded by RequireRole or RequireActiveUser.
func currentUser(r *http.Request) (models.User, bool) {
	user, ok := r.Context().Value(ctxUser).(models.User)
	return user, ok
}

// RequireActiveUser loads the signed-in user. Deactivated accounts get 401.
func (s *Server) RequireActiveUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := services.GetActiveUser(r.Context(), s.DB, CurrentUserID(r))
		if err != nil {
			if services.IsKind(err, services.KindNotFound) {
				WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			WriteServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUser, user)))
	})
}

// RequireRole reads the role from the database, so role changes made by the
// billing mirror apply to tokens issued before them.
func (s *Server) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return s.RequireActiveUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := currentUser(r)
			if !allowed[user.Role] {
				WriteError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func (s *Server) RequireFeature(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := s.Entitlements.HasFeature(r.Context(), s.DB, CurrentUserID(r), feature)
			if err != nil {
				WriteServiceError(w, r, err)
				return
			}
			if !ok {
				WriteError(w, http.StatusForbidden, "Feature not available in your plan: "+feature)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
