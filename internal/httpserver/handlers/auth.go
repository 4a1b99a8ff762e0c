package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/mw"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

// StateCookie binds an OAuth state value to the browser that started sign-in.
const StateCookie = "oauth_state"

const stateTTL = 10 * time.Minute

type providersResponse struct {
	Providers []string `json:"providers"`
}

type meResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Providers lists the enabled identity providers for the sign-in page.
func Providers(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, providersResponse{Providers: d.Auth.Providers()})
	}
}

// SignIn redirects to the provider with a fresh state bound to a cookie.
func SignIn(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		state := uuid.NewString()

		target, err := d.Auth.SignInURL(provider, state)
		if err != nil {
			d.Logger.Debug("sign-in with unknown provider", logger.String("provider", provider))
			writeError(w, http.StatusNotFound, "unknown identity provider")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     StateCookie,
			Value:    provider + "|" + state,
			Path:     "/auth",
			MaxAge:   int(stateTTL.Seconds()),
			HttpOnly: true,
			Secure:   d.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// Callback completes the provider round trip and sets the session cookie.
func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clearCookie(w, StateCookie, "/auth", d.SecureCookies)

		provider, err := verifyState(r)
		if err != nil {
			d.Logger.Warn("oauth callback rejected", logger.Error(err))
			writeError(w, http.StatusUnauthorized, "authentication failed")
			return
		}

		token, expires, _, err := d.Auth.Complete(r.Context(), provider, r.URL.Query().Get("code"))
		if err != nil {
			d.Logger.Warn("oauth exchange failed",
				logger.String("provider", provider),
				logger.Error(err))
			writeError(w, http.StatusUnauthorized, "authentication failed")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     mw.SessionCookie,
			Value:    token,
			Path:     "/",
			Expires:  expires,
			HttpOnly: true,
			Secure:   d.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

// SignOut revokes the session token and sends the browser back to sign-in.
func SignOut(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var token string
		if c, err := r.Cookie(mw.SessionCookie); err == nil {
			token = c.Value
		}

		if err := d.Auth.SignOut(token); err != nil {
			d.Logger.Debug("sign-out without valid session", logger.Error(err))
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		clearCookie(w, mw.SessionCookie, "/", d.SecureCookies)
		http.Redirect(w, r, mw.SignInPath, http.StatusSeeOther)
	}
}

// Me returns the display identity of the session user.
func Me(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := mw.SessionFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		writeJSON(w, http.StatusOK, meResponse{
			ID:     sess.User.ID,
			Name:   sess.User.DisplayName(),
			Avatar: sess.User.Avatar(),
		})
	}
}

// verifyState checks the callback state against the cookie and returns the
// provider that started the flow.
func verifyState(r *http.Request) (string, error) {
	c, err := r.Cookie(StateCookie)
	if err != nil {
		return "", &domain.AuthError{Op: "state", Err: errors.New("missing state cookie")}
	}
	provider, state, ok := strings.Cut(c.Value, "|")
	if !ok || provider == "" || state == "" {
		return "", &domain.AuthError{Op: "state", Err: errors.New("malformed state cookie")}
	}
	if r.URL.Query().Get("state") != state {
		return "", &domain.AuthError{Op: "state", Err: errors.New("state mismatch")}
	}
	return provider, nil
}

func clearCookie(w http.ResponseWriter, name, path string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
