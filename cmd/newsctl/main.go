package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"newsbot/internal/app"
	"newsbot/internal/config"
	"newsbot/internal/db"
	"newsbot/internal/notify"
	"newsbot/internal/paging"
	"newsbot/internal/telegram"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

const (
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitDataError    = 3
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:    "newsctl",
		Usage:   "Administer the newsbot article store and subscribers",
		Version: CommitSHA,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "driver",
				Value:   "postgres",
				Usage:   "Database driver (postgres or sqlite)",
				EnvVars: []string{"DATABASE_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Database DSN",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Before: func(c *cli.Context) error {
			if err := godotenv.Load(); err != nil {
				log.Println("Error loading .env file")
			}
			// Flags win over the environment for config.Load.
			os.Setenv("DATABASE_DRIVER", c.String("driver"))
			os.Setenv("DATABASE_URL", c.String("db"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the database schema",
				Action: migrate,
			},
			{
				Name:  "ingest",
				Usage: "Run one ingestion cycle",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Print notifications instead of sending them through Telegram",
					},
				},
				Action: ingestOnce,
			},
			{
				Name:  "articles",
				Usage: "List stored articles, oldest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "page",
						Aliases: []string{"p"},
						Value:   1,
						Usage:   "Page number",
					},
					&cli.IntFlag{
						Name:    "size",
						Aliases: []string{"s"},
						Value:   10,
						Usage:   "Articles per page",
					},
				},
				Action: listArticles,
			},
			{
				Name:  "subscribers",
				Usage: "List subscriber ids, or show one subscriber",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "id",
						Usage: "Show the subscriber with this id",
					},
				},
				Action: listSubscribers,
			},
		},
	}
}

func openStores(c *cli.Context) (*config.Config, *app.Stores, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), ExitUsageError)
	}
	stores, err := app.OpenStores(c.Context, cfg)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), ExitDataError)
	}
	return cfg, stores, nil
}

func migrate(c *cli.Context) error {
	_, stores, err := openStores(c)
	if err != nil {
		return err
	}
	defer stores.Close()

	// OpenStores already migrated; run again to report errors explicitly.
	if err := db.Migrate(stores.DB); err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	return outputJSON(c, map[string]interface{}{"success": true})
}

// printTransport writes notifications to the command output.
type printTransport struct {
	out io.Writer
}

func (p printTransport) Send(ctx context.Context, subscriberID int64, text, link string) error {
	_, err := fmt.Fprintf(p.out, "-> %d\n%s\n\n", subscriberID, text)
	return err
}

func ingestOnce(c *cli.Context) error {
	cfg, stores, err := openStores(c)
	if err != nil {
		return err
	}
	defer stores.Close()

	var transport notify.Transport = printTransport{out: c.App.ErrWriter}
	if !c.Bool("dry-run") {
		if err := cfg.RequireBotToken(); err != nil {
			return cli.Exit(err.Error()+" (or use --dry-run)", ExitUsageError)
		}
		api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to create bot: %v", err), ExitGeneralError)
		}
		transport = telegram.NewTransport(api)
	}

	nc, publisher, err := app.ConnectEvents(cfg)
	if err != nil {
		return cli.Exit(err.Error(), ExitGeneralError)
	}
	if nc != nil {
		defer nc.Drain()
	}

	res, err := app.NewCycle(cfg, stores, transport, publisher).Run(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Cycle failed: %v", err), ExitDataError)
	}

	summary := map[string]interface{}{
		"cycle":      res.ID,
		"duration":   res.Duration.Round(time.Millisecond).String(),
		"candidates": res.Candidates,
		"malformed":  res.Malformed,
		"inserted":   len(res.Inserted),
		"delivered":  res.Notify.Delivered,
		"failed":     res.Notify.Failed,
		"skipped":    res.Notify.Skipped,
	}
	if res.NotifyErr != nil {
		summary["notify_error"] = res.NotifyErr.Error()
	}
	return outputJSON(c, summary)
}

func listArticles(c *cli.Context) error {
	_, stores, err := openStores(c)
	if err != nil {
		return err
	}
	defer stores.Close()

	page, err := paging.NewService(stores.Articles).GetPage(c.Context, c.Int("page"), c.Int("size"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get articles: %v", err), ExitDataError)
	}

	items := make([]map[string]string, 0, len(page.Items))
	for _, a := range page.Items {
		items = append(items, map[string]string{
			"id":           a.ID,
			"published_at": a.PublishedAt.Format(time.RFC3339),
			"category":     a.Category,
			"title":        a.Title,
			"url":          a.URL,
		})
	}
	return outputJSON(c, map[string]interface{}{
		"items":       items,
		"page":        page.Number,
		"size":        page.Size,
		"total":       page.Total,
		"total_pages": page.TotalPages,
	})
}

func listSubscribers(c *cli.Context) error {
	_, stores, err := openStores(c)
	if err != nil {
		return err
	}
	defer stores.Close()

	if c.IsSet("id") {
		sub, err := stores.Subscribers.Get(c.Context, c.Int64("id"))
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to get subscriber: %v", err), ExitDataError)
		}
		return outputJSON(c, sub)
	}

	ids, err := stores.Subscribers.AllSubscriberIDs(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to list subscribers: %v", err), ExitDataError)
	}
	if ids == nil {
		ids = []int64{}
	}
	return outputJSON(c, ids)
}

func outputJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
