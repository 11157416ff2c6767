package main

import (
	"context"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"newsbot/internal/app"
	"newsbot/internal/config"
	"newsbot/internal/telegram"
	"newsbot/internal/worker"
	"newsbot/pkg/tasks"
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
	if err := cfg.RequireBotToken(); err != nil {
		log.Fatal(err)
	}

	stores, err := app.OpenStores(context.Background(), cfg)
	if err != nil {
		log.Fatalf("could not open stores: %v", err)
	}
	defer stores.Close()

	nc, publisher, err := app.ConnectEvents(cfg)
	if err != nil {
		log.Fatalf("could not connect events: %v", err)
	}
	if nc != nil {
		defer nc.Drain()
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("could not create bot: %v", err)
	}
	cycle := app.NewCycle(cfg, stores, telegram.NewTransport(api), publisher)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			// One cycle at a time so cycles never overlap.
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
			ShutdownTimeout: cfg.FetchInterval,
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(cycle)
	mux.HandleFunc(tasks.TypeIngestCycle, taskHandler.HandleIngestCycleTask)

	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv := &http.Server{Addr: ":" + cfg.Port, Handler: metricsMux, ReadHeaderTimeout: 10 * time.Second}
		log.Printf("Serving metrics on :%s", cfg.Port)
		if err := metricsSrv.ListenAndServe(); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
