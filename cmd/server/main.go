package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mfgops/operations-dashboard/internal/api"
	"github.com/mfgops/operations-dashboard/internal/api/handler"
	"github.com/mfgops/operations-dashboard/internal/core/ports"
	"github.com/mfgops/operations-dashboard/internal/core/service"
	"github.com/mfgops/operations-dashboard/internal/infrastructure/db/mongo"
	"github.com/mfgops/operations-dashboard/internal/infrastructure/db/redis"
	"github.com/mfgops/operations-dashboard/internal/infrastructure/db/sqlstore"
	"github.com/mfgops/operations-dashboard/internal/infrastructure/hashing"
	"github.com/mfgops/operations-dashboard/internal/infrastructure/telemetry"
	"github.com/mfgops/operations-dashboard/internal/pkg/config"
	"github.com/mfgops/operations-dashboard/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title                       Manufacturing Operations Dashboard Auth API
// @version                     1.0
// @description                 Signup, login, session verification and role-based access for the operations dashboard.
// @BasePath                    /
// @schemes                     http
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the session token.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is not configured yet.
		bootLog := logger.Init(logger.Options{Pretty: true})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: cfg.ServiceName,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server stopped")
}

type stores struct {
	users  ports.UserRepository
	audit  ports.AuditRepository
	health map[string]handler.Pinger
	close  func(context.Context)
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		st.close(sctx)
	}()

	var limiter ports.LoginLimiter
	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, login throttling disabled")
		} else {
			defer client.Close()
			limiter = redis.NewLoginLimiter(client, cfg.Login.MaxAttempts, cfg.Login.Window)
			st.health["redis"] = pingRedis(client)
		}
	}

	pool, stopPool := startHashPool(ctx, cfg.Login.HashWorkers, log)
	defer stopPool()

	tokens := service.NewTokenService(cfg.JWTSecret, service.DefaultTokenTTL, log)
	auth := service.NewAuthService(service.AuthDeps{
		Users:   st.users,
		Audit:   st.audit,
		Hasher:  pool,
		Tokens:  tokens,
		Limiter: limiter,
	}, log)

	if cfg.Seed.AdminEmail != "" {
		if err := auth.SeedAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
			return err
		}
	}

	e := api.NewRouter(api.Deps{
		Auth:               auth,
		Tokens:             tokens,
		Health:             st.health,
		Log:                log,
		ExposeErrorDetails: cfg.ExposeErrorDetails,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case sqlstore.DriverPostgres, sqlstore.DriverMySQL:
		db, err := sqlstore.Open(ctx, cfg.StoreDriver, cfg.SQL.DSN)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:  sqlstore.NewUserRepository(db),
			audit:  sqlstore.NewAuditRepository(db),
			health: map[string]handler.Pinger{cfg.StoreDriver: db},
			close: func(context.Context) {
				if err := db.Close(); err != nil {
					log.Warn().Err(err).Msg("sql store close failed")
				}
			},
		}, nil
	default:
		db, err := mongo.Connect(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  cfg.ServiceName,
		})
		if err != nil {
			return nil, err
		}
		users := mongo.NewUserRepository(db.DB)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		return &stores{
			users:  users,
			audit:  mongo.NewAuditRepository(db.DB),
			health: map[string]handler.Pinger{"mongodb": db},
			close: func(ctx context.Context) {
				if err := db.Close(ctx); err != nil {
					log.Warn().Err(err).Msg("mongo disconnect failed")
				}
			},
		}, nil
	}
}

// startHashPool keeps the pool running after ctx is cancelled, until stop is
// called. Requests drained by e.Shutdown still need to hash.
func startHashPool(ctx context.Context, workers int, log zerolog.Logger) (*hashing.Pool, context.CancelFunc) {
	poolCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	pool := hashing.NewPool(workers, hashing.DefaultCost, log)
	pool.Start(poolCtx)
	return pool, stop
}

func pingRedis(client *goredis.Client) handler.PingFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
