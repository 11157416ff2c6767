package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"newsbot/internal/app"
	"newsbot/internal/config"
	"newsbot/internal/handlers"
	"newsbot/internal/middleware"
	"newsbot/internal/paging"
	"newsbot/internal/scheduler"
	"newsbot/internal/telegram"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

const shutdownTimeout = 10 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
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
	pages := paging.NewService(stores.Articles)
	limiter := middleware.NewRateLimiterMiddleware(rate.Limit(cfg.CommandRate), cfg.CommandBurst)

	bot := handlers.NewBot(api, stores.Subscribers, pages, cfg.PageSize, limiter)
	h := handlers.New(stores.Articles, pages, stores.DB, cfg.BaseURL, cfg.PageSize)
	auth := middleware.NewAuthenticator(cfg.TelegramBotToken, stores.Subscribers, middleware.DefaultInitDataMaxAge)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(auth.Middleware, limiter.Middleware),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched := scheduler.New(cfg.FetchInterval, func(ctx context.Context) {
		cycle.Run(ctx)
	})

	log.Printf("Newsbot starting (commit: %s)", CommitSHA)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		handlers.StartTelegramBot(gctx, api, bot)
		return nil
	})
	g.Go(func() error {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Received shutdown signal, stopping...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("newsbot stopped with error: %v", err)
	}
	log.Println("Newsbot stopped")
}
