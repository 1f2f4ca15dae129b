package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-api-auth/internal/application/auth"
	"github.com/go-api-auth/internal/config"
	"github.com/go-api-auth/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-api-auth/internal/infrastructure/jwt"
	redisinfra "github.com/go-api-auth/internal/infrastructure/redis"
	s3infra "github.com/go-api-auth/internal/infrastructure/s3"
	"github.com/go-api-auth/internal/infrastructure/sns"
	"github.com/go-api-auth/internal/infrastructure/sqlstore"
	"github.com/go-api-auth/internal/pkg/password"
	transporthttp "github.com/go-api-auth/internal/transport/http"
	"github.com/go-api-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-api-auth/internal/transport/http/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// stateStore is what the service needs plus a liveness probe.
type stateStore interface {
	auth.StateStore
	handler.Pinger
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx := context.Background()

	// Signing keys are loaded once; the process refuses to start without them.
	keyStore, err := newKeyStore(ctx, cfg)
	if err != nil {
		fatal("key store", err)
	}
	keys, err := jwtinfra.LoadOrGenerateKeys(ctx, keyStore, cfg.Keys.PrivateName, cfg.Keys.PublicName)
	if err != nil {
		fatal("signing keys", err)
	}
	codec, err := jwtinfra.NewCodec(keys, cfg.JWT)
	if err != nil {
		fatal("token codec", err)
	}

	db, err := sqlstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		fatal("database", err)
	}
	defer db.Close()
	if err := sqlstore.Migrate(ctx, db, cfg.DatabaseDriver); err != nil {
		fatal("migrations", err)
	}
	store := sqlstore.New(db)

	// Redis clients are shared by the state store and the task stream.
	var redisClients []*redis.Client
	if cfg.StateBackend == "redis" || cfg.QueueBackend == "redis" {
		redisClients, err = redisinfra.NewClients(cfg.RedisURLs)
		if err != nil {
			fatal("redis", err)
		}
		defer func() {
			for _, c := range redisClients {
				_ = c.Close()
			}
		}()
	}

	state, err := newStateStore(ctx, cfg, redisClients)
	if err != nil {
		fatal("state store", err)
	}
	tasks, err := newTaskPublisher(ctx, cfg, redisClients)
	if err != nil {
		fatal("task queue", err)
	}

	authSvc := auth.NewService(auth.ServiceDeps{
		Repos:      store,
		State:      state,
		Codec:      codec,
		Hasher:     password.NewBcrypt(cfg.BcryptCost),
		Tasks:      tasks,
		CodeLength: cfg.VerificationCodeLength,
		CodeTTL:    cfg.VerificationCodeTTL,
	})

	limiter := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	defer limiter.Stop()

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Auth: authSvc,
		Checks: map[string]handler.Pinger{
			"database": store,
			"state":    state,
		},
		Limiter: limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	slog.Info("server stopped")
}

func newKeyStore(ctx context.Context, cfg *config.Config) (jwtinfra.KeyStore, error) {
	switch cfg.Keys.Store {
	case "file":
		return jwtinfra.NewDirStore(cfg.Keys.Dir), nil
	case "s3":
		if cfg.Keys.Bucket == "" {
			return nil, errors.New("JWT_KEYS_BUCKET is required when KEY_STORE=s3")
		}
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s3infra.NewKeyStore(client, cfg.Keys.Bucket, cfg.Keys.Dir), nil
	default:
		return nil, fmt.Errorf("unknown KEY_STORE %q", cfg.Keys.Store)
	}
}

func newStateStore(ctx context.Context, cfg *config.Config, clients []*redis.Client) (stateStore, error) {
	switch cfg.StateBackend {
	case "redis":
		s := redisinfra.NewStore(clients...)
		if err := s.Ping(ctx); err != nil {
			return nil, err
		}
		slog.Info("state store ready", "backend", "redis", "shards", len(clients))
		return s, nil
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoStateTable)
		slog.Info("state store ready", "backend", "dynamo", "table", cfg.DynamoStateTable)
		return dynamo.NewStateStore(client, cfg.DynamoStateTable), nil
	default:
		return nil, fmt.Errorf("unknown STATE_BACKEND %q", cfg.StateBackend)
	}
}

func newTaskPublisher(ctx context.Context, cfg *config.Config, clients []*redis.Client) (auth.TaskPublisher, error) {
	switch cfg.QueueBackend {
	case "redis":
		return redisinfra.NewTaskStream(clients[0], cfg.QueueStream, cfg.QueueGroup, ""), nil
	case "sns":
		if cfg.SNSTopicARN == "" {
			return nil, errors.New("SNS_TOPIC_ARN is required when QUEUE_BACKEND=sns")
		}
		client, err := sns.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return sns.NewTaskPublisher(client, cfg.SNSTopicARN), nil
	default:
		return nil, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend)
	}
}

func fatal(what string, err error) {
	slog.Error("startup failed", "component", what, "err", err)
	os.Exit(1)
}
