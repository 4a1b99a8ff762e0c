package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/auth"
	"github.com/MrSnakeDoc/bookmarks/internal/config"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
	"github.com/MrSnakeDoc/bookmarks/internal/redis"
	"github.com/MrSnakeDoc/bookmarks/internal/store"
	"github.com/MrSnakeDoc/bookmarks/internal/store/memory"
	"github.com/MrSnakeDoc/bookmarks/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/bookmarks/internal/store/redis"
	"github.com/MrSnakeDoc/bookmarks/internal/utils"
	"github.com/MrSnakeDoc/bookmarks/internal/version"
)

type App struct {
	cfg    *config.Config
	logger logger.Logger
	server *httpserver.Server
	store  store.Store
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog, logger.WithFile(logger.FileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	}))

	// Storage first - fail fast if unavailable
	st, err := openStore(context.Background(), cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s store: %v", cfg.Store, err)
		os.Exit(1)
	}
	loggerClient.Info("store initialized", logger.String("backend", cfg.Store))

	authService, err := newAuth(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to initialize authentication: %v", err)
		utils.MustClose(st, loggerClient)
		os.Exit(1)
	}

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		Store:           st,
		Auth:            authService,
		RefreshInterval: cfg.RefreshInterval,
		SecureCookies:   cfg.SecureCookies,
		MutationBurst:   cfg.MutationBurst,
		MutationPerMin:  cfg.MutationPerMin,
		RequestTimeout:  cfg.RequestTimeout,
	}

	return &App{
		cfg:    cfg,
		logger: loggerClient,
		server: httpserver.New(cfg, loggerClient, d),
		store:  st,
	}
}

// openStore connects the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store: bookmarks are lost on restart and not shared between instances")
		return memory.New(), nil

	case config.StorePostgres:
		log.Info("connecting to postgres")
		pg, err := postgres.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		return pg, nil

	case config.StoreRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.Connect(ctx, redis.Options{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, err
		}
		return redisstore.NewStore(client, log), nil

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// newAuth builds the identity service with every configured provider.
func newAuth(cfg *config.Config, log logger.Logger) (*auth.Service, error) {
	sessions, err := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	var providers []auth.Provider
	if cfg.GoogleClientID != "" {
		providers = append(providers, auth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret))
	}
	if len(providers) == 0 {
		log.Warn("no identity provider configured: nobody will be able to sign in")
	}

	return auth.NewService(sessions, cfg.SiteURL, log, providers...), nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting bookmarks v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())
	defer func() { _ = a.logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		utils.MustClose(a.store, a.logger)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if err := a.store.Close(); err != nil {
		a.logger.Warnf("failed to close store: %v", err)
	} else {
		a.logger.Info("✅ Store closed cleanly")
	}

	a.logger.Info("✅ bookmarks stopped cleanly")
	return nil
}
