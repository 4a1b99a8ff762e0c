package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

// MinSecretBytes is the minimum decoded length of the session secret.
const MinSecretBytes = 32

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrRevokedToken = errors.New("session token revoked")
)

// Claims is the payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Picture   string `json:"picture,omitempty"`
}

// Sessions issues and validates HS256 session tokens. Signed-out tokens are
// kept in a revocation list until they would have expired anyway.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
}

// NewSessions validates the base64 secret and returns a token issuer.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil || len(key) < MinSecretBytes {
		return nil, fmt.Errorf("invalid session secret: must be base64 and at least %d bytes when decoded", MinSecretBytes)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid session ttl: %v", ttl)
	}
	return &Sessions{
		secret:  key,
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

// Issue signs a token for user.
func (s *Sessions) Issue(user domain.User) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Picture:   user.Picture,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Parse validates a token and returns the session it carries.
func (s *Sessions) Parse(token string) (domain.Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == "" || claims.ExpiresAt == nil {
		return domain.Session{}, ErrInvalidToken
	}
	if s.isRevoked(claims.ID) {
		return domain.Session{}, ErrRevokedToken
	}

	return domain.Session{
		User: domain.User{
			ID:        claims.UserID,
			Email:     claims.Email,
			FullName:  claims.FullName,
			Name:      claims.Name,
			AvatarURL: claims.AvatarURL,
			Picture:   claims.Picture,
		},
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke invalidates a session until its natural expiry.
func (s *Sessions) Revoke(session domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	s.revoked[session.TokenID] = session.ExpiresAt
}

func (s *Sessions) isRevoked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}
