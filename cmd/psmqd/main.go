// Command psmqd runs a PSMQ broker process: it loads configuration from
// the environment, wires a Redis-backed queue.Store through the
// instrumented/resilient decorators, and optionally starts the
// dead-letter reaper. It does not expose a network API itself — psmqd is
// the process that owns the broker; callers embed pkg/broker directly or
// talk to it over whatever transport the deployment adds.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/psmq/psmq/pkg/broker"
	"github.com/psmq/psmq/pkg/concurrency/distlock"
	"github.com/psmq/psmq/pkg/config"
	"github.com/psmq/psmq/pkg/logger"
	"github.com/psmq/psmq/pkg/queue"
	"github.com/psmq/psmq/pkg/queue/adapters/redis"
	"github.com/psmq/psmq/pkg/telemetry"
)

func main() {
	var cfg broker.Config
	if err := config.Load(&cfg); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{})
	log := logger.L()

	shutdown, err := telemetry.Init(telemetry.Config{ServiceName: "psmqd"})
	if err != nil {
		log.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer shutdown(context.Background())

	client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	defer client.Close()

	store := redis.New(client, redis.WithKeyPrefix(cfg.RedisKeyPrefix))
	decorated := broker.NewResilientStore(
		broker.NewInstrumentedStore(store),
		broker.ResilientOptions{},
	)

	b := broker.New(decorated, broker.Options{
		Locker:       distlock.NewRedisLocker(client, cfg.RedisKeyPrefix+":lock:"),
		LockTTL:      cfg.LockTTL,
		StreamClient: client,
	})

	if cfg.ReaperEnabled {
		names, err := b.Store().ListQueues(ctx)
		if err != nil {
			log.Error("failed to list queues for reaper", "error", err)
			os.Exit(1)
		}
		r := queue.NewReaper(b.Store(), names, queue.ReaperConfig{
			Interval:        cfg.Reaper.Interval,
			MaxRC:           cfg.Reaper.MaxRC,
			MaxAge:          cfg.Reaper.MaxAge,
			DeadLetterQueue: cfg.Reaper.DeadLetterQueue,
		})
		go r.Run(ctx)
	}

	log.InfoContext(ctx, "psmqd started", "redis_addr", cfg.RedisAddr)
	<-ctx.Done()
	log.InfoContext(context.Background(), "psmqd shutting down")
}
