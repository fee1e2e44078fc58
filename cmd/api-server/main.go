package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"mediareview/database"
	"mediareview/internal/config"
	"mediareview/internal/logging"
	"mediareview/internal/microservices/http-api/handler"
	"mediareview/internal/microservices/http-api/middleware"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/notify"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("could not load config")
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("could not connect to database")
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logging.Fatal().Err(err).Msg("migration failed")
	}

	perms, err := permission.NewEvaluator()
	if err != nil {
		logging.Fatal().Err(err).Msg("could not load permission policy")
	}

	limiter, closeLimiter := newAuthLimiter(cfg)
	defer closeLimiter()

	svc := handler.NewServices(db, perms, notify.New(cfg), cfg)
	router := handler.NewRouter(svc, handler.RouterConfig{
		Paging:      handler.Paging{DefaultSize: cfg.DefaultPageSize, MaxSize: cfg.MaxPageSize},
		CORSOrigins: cfg.CORSOrigins,
		AuthLimiter: limiter,
		Metrics:     cfg.PrometheusEnabled,
		DB:          db,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("forced shutdown")
	}
}

// newAuthLimiter prefers the shared Redis window and falls back to a
// per-process limiter when Redis is not configured or unreachable.
func newAuthLimiter(cfg *config.Config) (middleware.Limiter, func()) {
	local := middleware.NewLocalLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	if cfg.RedisURL == "" {
		return local, func() {}
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logging.Warn().Err(err).Msg("invalid REDIS_URL, using in-process rate limiter")
		return local, func() {}
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logging.Warn().Err(err).Msg("redis unreachable, using in-process rate limiter")
		rdb.Close()
		return local, func() {}
	}

	logging.Info().Str("addr", opts.Addr).Msg("connected to redis")
	return middleware.NewRedisLimiter(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow), func() { rdb.Close() }
}
