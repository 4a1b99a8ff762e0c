package mw

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

func quietLogger() logger.Logger { return logger.New("error", false) }

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimitSpendsBurstThenRefills(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:        2,
		RefillPerMin: 60,
		Key:          func(r *http.Request) string { return r.Header.Get("X-User") },
		Now:          func() time.Time { return now },
	})(okHandler)

	do := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-User", user)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("a").Code)
	assert.Equal(t, http.StatusOK, do("a").Code)

	rec := do("a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	// Buckets are per key
	assert.Equal(t, http.StatusOK, do("b").Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, do("a").Code)
}

func TestRateLimitDefaultsToClientIP(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 1, RefillPerMin: 1})(okHandler)

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("192.0.2.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, do("192.0.2.1:2000"))
	assert.Equal(t, http.StatusOK, do("192.0.2.2:1000"))
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, false, quietLogger())(okHandler)

	tests := map[string]int{
		"10.1.2.3:4000":  http.StatusOK,
		"192.0.2.1:4000": http.StatusForbidden,
	}
	for remote, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, remote)
	}
}

func TestAllowOnlyCIDRSPassthroughWhenEmpty(t *testing.T) {
	h := AllowOnlyCIDRS(nil, false, quietLogger())(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type resolverFunc func(token string) (domain.Session, error)

func (f resolverFunc) CurrentUser(token string) (domain.Session, error) { return f(token) }

func TestRequireSession(t *testing.T) {
	auth := resolverFunc(func(token string) (domain.Session, error) {
		if token == "good" {
			return domain.Session{User: domain.User{ID: "U1"}}, nil
		}
		return domain.Session{}, &domain.AuthError{Op: "session", Err: domain.ErrUnauthenticated}
	})

	var seen string
	h := RequireSession(auth, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFrom(r.Context())
		require.True(t, ok)
		seen = sess.OwnerID()
	}))

	t.Run("valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "U1", seen)
	})

	for name, cookie := range map[string]*http.Cookie{
		"no cookie":  nil,
		"bad cookie": {Name: SessionCookie, Value: "bad"},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if cookie != nil {
				req.AddCookie(cookie)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"unauthenticated","sign_in":"/auth"}`, rec.Body.String())
		})
	}
}

func TestSessionUserKey(t *testing.T) {
	key := SessionUserKey(false)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "ip:192.0.2.1", key(req))

	req = req.WithContext(WithSession(req.Context(), domain.Session{User: domain.User{ID: "U1"}}))
	assert.Equal(t, "user:U1", key(req))
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, errors.New("test hijack")
}

func TestLogWriterSupportsHijackAndUnwrap(t *testing.T) {
	inner := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}

	h := Log(quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok, "wrapped writer must stay hijackable")
		_, _, _ = hj.Hijack()

		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		require.True(t, ok)
		assert.Same(t, inner, u.Unwrap())
	}))

	h.ServeHTTP(inner, httptest.NewRequest(http.MethodGet, "/api/bookmarks/live", nil))
	assert.True(t, inner.hijacked)
}

func TestLogWriterHijackUnsupported(t *testing.T) {
	sw := &statusWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := sw.Hijack()
	assert.Error(t, err)
}
