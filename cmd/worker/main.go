package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"qrattend/internal/config"
	"qrattend/internal/events"
	"qrattend/internal/queue"
	"qrattend/internal/statscache"
	"qrattend/internal/store"
)

// Worker consumes check-in events from Redis, drops stale statistics and
// writes the audit log.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.QueueBackend != "redis" {
		log.Fatalf("worker needs QUEUE_BACKEND=redis (got %q); the api processes memory queues itself", cfg.QueueBackend)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis not reachable at %s, will keep retrying", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)

	// Only Invalidate is used here; statistics are computed by the api.
	var inv events.Invalidator
	if cfg.StatsCacheTTL > 0 {
		inv = statscache.NewReporter(nil, statscache.NewRedisCache(redisClient.Client), cfg.StatsCacheTTL)
	}
	var processed, failed int
	proc := events.NewProcessor(inv, func(_ events.CheckIn, err error) {
		if err != nil {
			failed++
			return
		}
		processed++
	})

	log.Println("worker started, waiting for messages...")
	if err := proc.Run(ctx, q); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("worker error: %v", err)
	}
	log.Printf("worker stopped (processed=%d failed=%d)", processed, failed)
}
