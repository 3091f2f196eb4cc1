// @title           Sweet Shop API
// @version         1.0
// @description     Catalog, inventory and accounts of the sweet shop.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweetshop/sweet-shop/internal/api"
	"github.com/sweetshop/sweet-shop/internal/api/handler"
	"github.com/sweetshop/sweet-shop/internal/core/service"
	mongodb "github.com/sweetshop/sweet-shop/internal/infrastructure/db/mongo"
	redisdb "github.com/sweetshop/sweet-shop/internal/infrastructure/db/redis"
	"github.com/sweetshop/sweet-shop/internal/infrastructure/queue"
	"github.com/sweetshop/sweet-shop/internal/pkg/config"
	"github.com/sweetshop/sweet-shop/pkg/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{})
		fallback := logger.Get()
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "sweet-shop",
	})

	// MongoDB
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	userRepo := mongodb.NewUserRepository(db)
	sweetRepo := mongodb.NewSweetRepository(db)
	movementRepo := mongodb.NewMovementRepository(db)
	if err := mongodb.EnsureIndexes(ctx, userRepo, sweetRepo, movementRepo); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	// Redis
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer func() { _ = rdb.Close() }()

	// Stock movement recorder
	dispatcher := queue.NewDispatcher(cfg.Movements.Workers, movementRepo, logger.Component("movements"))
	dispatcher.Start()

	// Services
	tokens, err := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, TTL: cfg.JWT.TTL})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token service")
	}
	authService := service.NewAuthService(userRepo, logger.Component("auth"))
	sweetService := service.NewSweetService(
		sweetRepo,
		movementRepo,
		dispatcher,
		redisdb.NewIdempotencyStore(rdb, cfg.Idempotency.TTL),
		logger.Component("ledger"),
	)

	e := api.NewRouter(api.RouterConfig{
		Auth:           authService,
		Tokens:         tokens,
		Sweets:         sweetService,
		RateCounter:    redisdb.NewRateCounter(rdb),
		AuthRateLimit:  cfg.RateLimit.Auth,
		AuthRateWindow: cfg.RateLimit.Window,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: cfg.TrustedProxies,
		Readiness: map[string]handler.Pinger{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Log: logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := dispatcher.Close(ctxShutdown); err != nil {
		log.Warn().Err(err).Msg("movement recorder did not drain in time")
	}
	log.Info().Msg("server exited properly")
}
