package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Provider is an identity provider reachable through an OAuth2 redirect.
type Provider interface {
	Name() string
	AuthCodeURL(state, redirectURL string) string
	Exchange(ctx context.Context, code, redirectURL string) (domain.User, error)
}

// Google signs users in with their Google account. It asks for offline
// access and always shows the consent screen.
type Google struct {
	cfg         oauth2.Config
	userInfoURL string
}

// GoogleOption customizes NewGoogle.
type GoogleOption func(*Google)

// WithGoogleEndpoints points the provider at other token and userinfo URLs.
func WithGoogleEndpoints(ep oauth2.Endpoint, userInfoURL string) GoogleOption {
	return func(g *Google) {
		g.cfg.Endpoint = ep
		g.userInfoURL = userInfoURL
	}
}

func NewGoogle(clientID, clientSecret string, opts ...GoogleOption) *Google {
	g := &Google{
		cfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthCodeURL(state, redirectURL string) string {
	cfg := g.cfg
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Given   string `json:"given_name"`
	Picture string `json:"picture"`
}

// Exchange trades the code for a token and reads the user's profile.
func (g *Google) Exchange(ctx context.Context, code, redirectURL string) (domain.User, error) {
	cfg := g.cfg
	cfg.RedirectURL = redirectURL

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return domain.User{}, fmt.Errorf("code exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return domain.User{}, err
	}
	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return domain.User{}, fmt.Errorf("userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.User{}, fmt.Errorf("userinfo: unexpected status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.User{}, fmt.Errorf("userinfo: %w", err)
	}
	if info.Sub == "" {
		return domain.User{}, fmt.Errorf("userinfo: missing subject")
	}

	return domain.User{
		ID:       info.Sub,
		Email:    info.Email,
		FullName: info.Name,
		Name:     info.Given,
		Picture:  info.Picture,
	}, nil
}
