package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/liamwears/moviestats/internal/models"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserContextKey is the key for storing user in context
	UserContextKey ContextKey = "user"
	// UserIDContextKey is the key for storing user ID in context
	UserIDContextKey ContextKey = "userID"
)

// SessionLookup resolves and removes session ids
type SessionLookup interface {
	Get(ctx context.Context, sessionID string) (uuid.UUID, error)
	Delete(ctx context.Context, sessionID string) error
}

// UserLookup loads users by id
type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthMiddleware handles authentication for protected routes
type AuthMiddleware struct {
	sessions     SessionLookup
	users        UserLookup
	cookieName   string
	isProduction bool
	logger       zerolog.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(sessions SessionLookup, users UserLookup, cookieName string, isProduction bool, logger zerolog.Logger) *AuthMiddleware {
	if cookieName == "" {
		cookieName = "session"
	}
	return &AuthMiddleware{
		sessions:     sessions,
		users:        users,
		cookieName:   cookieName,
		isProduction: isProduction,
		logger:       logger,
	}
}

// authenticate resolves the session cookie into a user. stale is true when
// the cookie named a session whose user no longer exists.
func (m *AuthMiddleware) authenticate(r *http.Request) (user *models.User, stale bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	userID, err := m.sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		return nil, false
	}

	user, err = m.users.Get(r.Context(), userID)
	if err != nil {
		m.logger.Debug().Err(err).Str("user_id", userID.String()).Msg("session user not found")
		if delErr := m.sessions.Delete(r.Context(), cookie.Value); delErr != nil {
			m.logger.Warn().Err(delErr).Msg("failed to delete stale session")
		}
		return nil, true
	}
	return user, false
}

func withUser(r *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(r.Context(), UserContextKey, user)
	ctx = context.WithValue(ctx, UserIDContextKey, user.ID)
	return r.WithContext(ctx)
}

// RequireAuth ensures the user is authenticated, redirecting to the login page otherwise
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, stale := m.authenticate(r)
		if user == nil {
			if stale {
				m.ClearSessionCookie(w)
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, withUser(r, user))
	})
}

// OptionalAuth checks for authentication but doesn't require it
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, _ := m.authenticate(r); user != nil {
			r = withUser(r, user)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthAPI ensures the user is authenticated for API requests
func (m *AuthMiddleware) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := m.authenticate(r)
		if user == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized","code":"UNAUTHORIZED"}`))
			return
		}
		next.ServeHTTP(w, withUser(r, user))
	})
}

// GetUserFromContext retrieves the user from request context
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// GetUserIDFromContext retrieves the user ID from request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return userID, ok
}

// SetSessionCookie sets a session cookie
func (m *AuthMiddleware) SetSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60, // 7 days
		HttpOnly: true,
		Secure:   m.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie clears the session cookie
func (m *AuthMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionID returns the session id carried by the request, if any
func (m *AuthMiddleware) SessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
