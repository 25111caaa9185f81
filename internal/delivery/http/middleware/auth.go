package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"townhall/internal/delivery/http/helpers"
	"townhall/internal/domain"
)

// SessionCookieName is the gorilla/sessions cookie holding the session token.
const SessionCookieName = "townhall_session"

const sessionTokenKey = "token"

// SessionManager stores the opaque session token in a signed cookie.
type SessionManager struct {
	store sessions.Store
}

// NewSessionManager creates a cookie store signed with secret. Cookies are
// HttpOnly, SameSite=Lax and Secure when secure is set.
func NewSessionManager(secret string, maxAge time.Duration, secure bool) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// Token returns the session token from the request cookie, or "".
func (m *SessionManager) Token(r *http.Request) string {
	session, err := m.store.Get(r, SessionCookieName)
	if err != nil {
		return ""
	}
	token, _ := session.Values[sessionTokenKey].(string)
	return token
}

// Save writes token into the session cookie.
func (m *SessionManager) Save(w http.ResponseWriter, r *http.Request, token string) error {
	// A cookie signed with an old secret fails to decode but still yields a
	// fresh session to write into.
	session, _ := m.store.Get(r, SessionCookieName)
	session.Values[sessionTokenKey] = token
	return session.Save(r, w)
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, SessionCookieName)
	delete(session.Values, sessionTokenKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

type contextKey string

const userKey contextKey = "user"

// SetUser returns a context carrying the authenticated user.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok && user != nil
}

// Authenticator resolves a session token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, sessionToken string) (*domain.User, error)
}

// OptionalAuth loads the user behind the session cookie into the context.
// Requests without a valid session continue anonymously.
func OptionalAuth(sm *SessionManager, auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sm.Token(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, domain.ErrUnauthorized) {
					logger.WarnContext(r.Context(), "authenticate session", "err", err,
						"request_id", helpers.RequestIDFromContext(r.Context()))
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetUser(r.Context(), user)))
		})
	}
}

// RequireUser responds 401 unless OptionalAuth found a user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole responds 401 without a user and 403 unless the user holds one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "login required")
				return
			}
			for _, role := range roles {
				if user.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "forbidden")
		})
	}
}
