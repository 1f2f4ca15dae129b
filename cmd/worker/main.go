// Command worker consumes notification tasks from the Redis stream and
// delivers them over SMTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-api-auth/internal/application/notification"
	"github.com/go-api-auth/internal/config"
	redisinfra "github.com/go-api-auth/internal/infrastructure/redis"
	"github.com/go-api-auth/internal/infrastructure/smtp"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if cfg.QueueBackend != "redis" {
		// SNS topics are drained by their own subscribers.
		slog.Error("worker only consumes the redis stream", "queue_backend", cfg.QueueBackend)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clients, err := redisinfra.NewClients(cfg.RedisURLs)
	if err != nil {
		slog.Error("redis", "err", err)
		os.Exit(1)
	}
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()

	host, _ := os.Hostname()
	consumer := fmt.Sprintf("%s-%d", host, os.Getpid())
	stream := redisinfra.NewTaskStream(clients[0], cfg.QueueStream, cfg.QueueGroup, consumer)
	if err := stream.EnsureGroup(ctx); err != nil {
		slog.Error("consumer group", "err", err)
		os.Exit(1)
	}

	svc := notification.NewService(smtp.NewMailer(cfg))

	slog.Info("worker started", "stream", cfg.QueueStream, "group", cfg.QueueGroup, "consumer", consumer)
	if err := stream.Consume(ctx, svc.Handle); err != nil {
		slog.Error("worker stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
