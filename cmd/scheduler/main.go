package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"newsbot/internal/config"
	"newsbot/internal/scheduler"
	"newsbot/internal/worker"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(cfg.FetchInterval, worker.EnqueueJob(client, cfg.FetchInterval))

	log.Printf("Scheduler starting (commit: %s)", CommitSHA)
	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("could not run scheduler: %v", err)
	}
	log.Println("Scheduler stopped")
}
