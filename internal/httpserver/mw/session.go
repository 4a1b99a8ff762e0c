package mw

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/utils"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "session"

// SignInPath is where unauthenticated clients are sent.
const SignInPath = "/auth"

type sessionKey struct{}

// SessionResolver turns a token into a session.
type SessionResolver interface {
	CurrentUser(token string) (domain.Session, error)
}

// RequireSession rejects requests without a valid session cookie with a 401
// pointing at the sign-in route, and stores the session in the context.
func RequireSession(auth SessionResolver, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(SessionCookie); err == nil {
				token = c.Value
			}

			sess, err := auth.CurrentUser(token)
			if err != nil {
				log.Debug("rejecting request without valid session",
					logger.String("path", r.URL.Path),
					logger.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "unauthenticated",
					"sign_in": SignInPath,
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession attaches sess to ctx.
func WithSession(ctx context.Context, sess domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(domain.Session)
	return sess, ok
}

// SessionUserKey keys rate limiting by session user, falling back to the
// client IP when no session is attached.
func SessionUserKey(trustProxy bool) func(*http.Request) string {
	return func(r *http.Request) string {
		if sess, ok := SessionFrom(r.Context()); ok {
			return "user:" + sess.OwnerID()
		}
		return "ip:" + utils.ClientIP(r, trustProxy)
	}
}
