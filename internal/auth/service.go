// Package auth is the identity collaborator: provider sign-in, session
// tokens and sign-out.
package auth

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

// CallbackPath is where providers redirect back to, relative to the site URL.
const CallbackPath = "/auth/callback"

var ErrUnknownProvider = errors.New("unknown identity provider")

// Service ties the providers to the session issuer.
type Service struct {
	providers map[string]Provider
	sessions  *Sessions
	siteURL   string
	logger    logger.Logger
}

func NewService(sessions *Sessions, siteURL string, log logger.Logger, providers ...Provider) *Service {
	s := &Service{
		providers: make(map[string]Provider, len(providers)),
		sessions:  sessions,
		siteURL:   strings.TrimRight(siteURL, "/"),
		logger:    log,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	return s
}

// CallbackURL is the absolute redirect URL registered with the providers.
func (s *Service) CallbackURL() string {
	return s.siteURL + CallbackPath
}

// Providers lists the enabled provider names, sorted.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SignInURL returns the provider URL the browser is redirected to.
func (s *Service) SignInURL(provider, state string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", &domain.AuthError{Op: "signin", Err: ErrUnknownProvider}
	}
	return p.AuthCodeURL(state, s.CallbackURL()), nil
}

// Complete exchanges a callback code and issues a session token.
func (s *Service) Complete(ctx context.Context, provider, code string) (string, time.Time, domain.User, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", time.Time{}, domain.User{}, &domain.AuthError{Op: "callback", Err: ErrUnknownProvider}
	}
	if code == "" {
		return "", time.Time{}, domain.User{}, &domain.AuthError{Op: "callback", Err: errors.New("missing code")}
	}

	user, err := p.Exchange(ctx, code, s.CallbackURL())
	if err != nil {
		return "", time.Time{}, domain.User{}, &domain.AuthError{Op: "callback", Err: err}
	}

	token, expires, err := s.sessions.Issue(user)
	if err != nil {
		return "", time.Time{}, domain.User{}, &domain.AuthError{Op: "issue", Err: err}
	}

	s.logger.Info("user signed in",
		logger.String("provider", provider),
		logger.String("user_id", user.ID))
	return token, expires, user, nil
}

// CurrentUser resolves a session token. An empty token is unauthenticated.
func (s *Service) CurrentUser(token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, &domain.AuthError{Op: "session", Err: domain.ErrUnauthenticated}
	}
	sess, err := s.sessions.Parse(token)
	if err != nil {
		return domain.Session{}, &domain.AuthError{Op: "session", Err: err}
	}
	return sess, nil
}

// SignOut revokes the session carried by token.
func (s *Service) SignOut(token string) error {
	sess, err := s.CurrentUser(token)
	if err != nil {
		return err
	}
	s.sessions.Revoke(sess)
	s.logger.Info("user signed out", logger.String("user_id", sess.OwnerID()))
	return nil
}
