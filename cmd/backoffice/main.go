package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/smallwares/backoffice/internal/adapter/cache"
	llmadapter "github.com/smallwares/backoffice/internal/adapter/llm"
	mailadapter "github.com/smallwares/backoffice/internal/adapter/mail"
	"github.com/smallwares/backoffice/internal/bootstrap"
	"github.com/smallwares/backoffice/internal/config"
	httptransport "github.com/smallwares/backoffice/internal/http"
	"github.com/smallwares/backoffice/internal/http/handler"
	httpmiddleware "github.com/smallwares/backoffice/internal/http/middleware"
	"github.com/smallwares/backoffice/internal/jwt"
	apimiddleware "github.com/smallwares/backoffice/internal/middleware"
	"github.com/smallwares/backoffice/internal/repository"
	"github.com/smallwares/backoffice/internal/server"
	"github.com/smallwares/backoffice/internal/service"
	"github.com/smallwares/backoffice/internal/store"
	"github.com/smallwares/backoffice/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newUserRepository,
			newProductRepository,
			newTagCache,
			newLLMClient,
			newMailer,
			newJWTGenerator,
			newRateLimiter,
			service.NewAuthService,
			newProductService,
			newTagSuggester,
			handler.NewAuthHandler,
			handler.NewProductHandler,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, runMigrations, bootstrap.EnsureAdmin, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	if cfg.UsingDevSecret() {
		logger.Warn("JWT_SECRET not set, using development fallback; do not run this in production")
	}
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newProductRepository(pool *pgxpool.Pool) repository.ProductRepository {
	return repository.NewPostgresProductRepo(pool)
}

// newTagCache returns a Redis-backed cache when REDIS_ADDR is configured and
// a noop cache otherwise; tag suggestion works either way.
func newTagCache(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (cacheadapter.TagCache, error) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, tag suggestion cache disabled")
		return cacheadapter.NoopTagCache{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return cacheadapter.NewRedisTagCache(client), nil
}

func newLLMClient(cfg config.Config) llmadapter.Client {
	return llmadapter.NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel, nil)
}

func newMailer(cfg config.Config) mailadapter.Sender {
	return mailadapter.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
}

func newJWTGenerator(cfg config.Config) *jwt.Generator {
	return jwt.NewGenerator([]byte(cfg.JWTSecret), cfg.SessionTokenTTL)
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newProductService(products repository.ProductRepository, logger *zap.Logger) *service.ProductService {
	return service.NewProductService(products, logger)
}

func newTagSuggester(client llmadapter.Client, tagCache cacheadapter.TagCache, cfg config.Config, logger *zap.Logger) *service.TagSuggester {
	return service.NewTagSuggester(client, tagCache, cfg.TagCacheTTL, logger)
}

func newAuthMiddleware(generator *jwt.Generator) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{JWT: generator}
}

func runMigrations(cfg config.Config, logger *zap.Logger) error {
	migrator, err := store.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("close migrator", zap.Error(err))
		}
	}()

	if err := migrator.Up(); err != nil {
		return err
	}
	logger.Info("database schema up to date")
	return nil
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
