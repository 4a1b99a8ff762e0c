package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookmarks/internal/config"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/store/memory"
)

const testSecret = "dGVzdC1zZWNyZXQta2V5LTMyLWJ5dGVzLWxvbmchISE="

func TestOpenStoreMemory(t *testing.T) {
	st, err := openStore(context.Background(), &config.Config{Store: config.StoreMemory}, logger.New("error", false))
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, st)
	assert.NoError(t, st.Ping(context.Background()))
	assert.NoError(t, st.Close())
}

func TestOpenStoreUnknown(t *testing.T) {
	_, err := openStore(context.Background(), &config.Config{Store: "mongo"}, logger.New("error", false))
	assert.Error(t, err)
}

func TestOpenStoreRedisGivesUp(t *testing.T) {
	cfg := &config.Config{
		Store:               config.StoreRedis,
		RedisAddr:           "127.0.0.1:1",
		RedisDT:             50 * time.Millisecond,
		RedisRT:             50 * time.Millisecond,
		RedisWT:             50 * time.Millisecond,
		RedisPoolSize:       1,
		RedisConnectTimeout: 200 * time.Millisecond,
		RedisRetryInterval:  20 * time.Millisecond,
		RedisMaxWait:        50 * time.Millisecond,
		RedisPingTimeout:    50 * time.Millisecond,
		RedisWarnThreshold:  1,
	}
	_, err := openStore(context.Background(), cfg, logger.New("error", false))
	assert.Error(t, err)
}

func TestNewAuth(t *testing.T) {
	log := logger.New("error", false)

	svc, err := newAuth(&config.Config{
		SessionSecret: testSecret,
		SessionTTL:    time.Hour,
		SiteURL:       "https://bookmarks.example.com",
	}, log)
	require.NoError(t, err)
	assert.Empty(t, svc.Providers())
	assert.Equal(t, "https://bookmarks.example.com/auth/callback", svc.CallbackURL())

	svc, err = newAuth(&config.Config{
		SessionSecret:      testSecret,
		SessionTTL:         time.Hour,
		SiteURL:            "https://bookmarks.example.com",
		GoogleClientID:     "id",
		GoogleClientSecret: "secret",
	}, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"google"}, svc.Providers())

	_, err = newAuth(&config.Config{SessionSecret: "c2hvcnQ=", SessionTTL: time.Hour}, log)
	assert.Error(t, err)
}
