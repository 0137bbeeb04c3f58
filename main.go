package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nftmarket/internal/config"
	"nftmarket/internal/database"
	"nftmarket/internal/middleware"
	"nftmarket/internal/repositories"
	"nftmarket/internal/server"
	"nftmarket/internal/services"
	"nftmarket/pkg/cache"
	"nftmarket/pkg/logger"
	"nftmarket/pkg/rabbitmq"
	"nftmarket/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	logs := logger.NewZapLogger("nftmarket", level)
	defer logs.Sync()

	if err := run(cfg, logs); err != nil {
		logs.Errorw("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// application is the wired service together with the connections it owns.
type application struct {
	logs    *zap.SugaredLogger
	http    *fiber.App
	mq      *rabbitmq.Client
	closers []func() error
}

// newApplication connects to every configured backend and builds the HTTP
// application. RabbitMQ, Redis and MinIO are optional.
func newApplication(ctx context.Context, cfg config.Config, logs *zap.SugaredLogger) (*application, error) {
	app := &application{logs: logs}

	// --- Database ---
	db, err := app.openDatabase(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	health := map[string]string{"database": cfg.DBDriver}

	// --- Events ---
	var events services.EventPublisher
	health["events"] = "disabled"
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(logs, rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.mq = mq
		app.closers = append(app.closers, mq.Close)
		events = mq
		health["events"] = "rabbitmq"
	}

	// --- Aggregate cache ---
	var aggregates services.Cache
	health["cache"] = "disabled"
	if cfg.RedisAddr != "" && cfg.MarketCacheTTL > 0 {
		rc, err := cache.NewRedisCache(ctx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, rc.Close)
		aggregates = rc
		health["cache"] = "redis"
	}

	// --- Image storage ---
	deps := server.Deps{Logger: logs, AccessLog: true, Health: health}
	health["uploads"] = "disabled"
	if cfg.MinioEndpoint != "" {
		store, err := storage.NewMinioStore(ctx, storage.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		deps.Images = store
		health["uploads"] = "minio"
	}

	// --- Repositories and services ---
	userRepo := repositories.NewGORMUserRepository(db)
	nftRepo := repositories.NewGORMNFTRepository(db)

	deps.Auth = services.NewAuthService(logs, userRepo, aggregates, cfg.JWTSecret, cfg.JWTTTL)
	deps.NFTs = services.NewNFTService(logs, nftRepo, events, aggregates)
	deps.Marketplace = services.NewMarketplaceService(logs, nftRepo, events, aggregates, cfg.MarketCacheTTL)
	deps.Social = services.NewSocialService(logs, userRepo, events)

	limiter := middleware.NewRateLimiter(logs, cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartCleanup(ctx, 10*time.Minute)
	deps.RateLimiter = limiter

	app.http = server.New(deps)
	return app, nil
}

// openDatabase connects and migrates the schema. The connection is owned by
// the application as soon as it is open, so a failed migration still closes it.
func (a *application) openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Close releases every connection in reverse order of acquisition.
func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func run(cfg config.Config, logs *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logs)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logs.Warnw("failed to close connections", "error", err)
		}
	}()

	// --- Activity consumer ---
	if app.mq != nil {
		go func() {
			if err := app.mq.ConsumeEvents(ctx, rabbitmq.LogActivity(logs)); err != nil {
				logs.Errorw("rabbitmq consumer stopped", "error", err)
			}
		}()
	}

	// --- HTTP server ---
	errCh := make(chan error, 1)
	go func() {
		logs.Infow("starting server", "addr", cfg.AppPort)
		errCh <- app.http.Listen(cfg.AppPort)
	}()

	select {
	case <-ctx.Done():
		logs.Infow("shutting down server")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	if err := app.http.ShutdownWithTimeout(10 * time.Second); err != nil {
		logs.Warnw("error during fiber shutdown", "error", err)
	}
	logs.Infow("server gracefully stopped")
	return nil
}
