// Package app wires the stores, the subscriber registry and the ingestion
// cycle from a Config. It is shared by the binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/time/rate"
	"newsbot/internal/config"
	"newsbot/internal/db"
	"newsbot/internal/events"
	"newsbot/internal/ingest"
	"newsbot/internal/models"
	"newsbot/internal/mongostore"
	"newsbot/internal/notify"
	"newsbot/internal/source"
	"newsbot/internal/telegram"
)

const connectTimeout = 10 * time.Second

// SubscriberRegistry is implemented by db.SubscriberRegistry and
// mongostore.SubscriberRegistry.
type SubscriberRegistry interface {
	Register(ctx context.Context, id int64, displayName string) error
	Touch(ctx context.Context, id int64, at time.Time) error
	AllSubscriberIDs(ctx context.Context) ([]int64, error)
	Get(ctx context.Context, id int64) (*models.Subscriber, error)
}

type Stores struct {
	DB          *sqlx.DB
	Articles    *db.ArticleStore
	Subscribers SubscriberRegistry

	mongo *mongo.Client
}

// OpenStores connects the article store and the configured subscriber
// backend.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	sqlDB, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	s := &Stores{DB: sqlDB, Articles: db.NewArticleStore(sqlDB)}
	if cfg.SubscriberBackend != config.BackendMongo {
		s.Subscribers = db.NewSubscriberRegistry(sqlDB)
		return s, nil
	}

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		client.Disconnect(context.Background())
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Println("Connected to MongoDB")

	registry := mongostore.NewSubscriberRegistry(client.Database(cfg.MongoDatabase).Collection(mongostore.CollectionName))
	if err := registry.EnsureIndexes(cctx); err != nil {
		client.Disconnect(context.Background())
		sqlDB.Close()
		return nil, err
	}
	s.Subscribers = registry
	s.mongo = client
	return s, nil
}

func (s *Stores) Close() {
	if s.mongo != nil {
		if err := s.mongo.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}
	if err := s.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// ConnectEvents connects to NATS and prepares the article stream. It returns
// a nil connection when NATS_URL is empty.
func ConnectEvents(cfg *config.Config) (*nats.Conn, *events.Publisher, error) {
	if cfg.NATSUrl == "" {
		return nil, nil, nil
	}

	nc, err := nats.Connect(cfg.NATSUrl, nats.Name("newsbot"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	if err := events.SetupStream(js); err != nil {
		nc.Close()
		return nil, nil, err
	}
	log.Println("Connected to NATS")
	return nc, events.NewPublisher(js), nil
}

// NewCycle builds the ingestion cycle that notifies through transport and,
// when publisher is non-nil, also emits article events.
func NewCycle(cfg *config.Config, stores *Stores, transport notify.Transport, publisher *events.Publisher) *ingest.Cycle {
	var limiter *rate.Limiter
	if cfg.NotifyRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.NotifyRate), 1)
	}
	notifier := notify.New(transport, telegram.FormatNotification, limiter, cfg.NotifyWorkers)

	cycle := ingest.NewCycle(source.NewNurKz(cfg.NewsSourceURL, cfg.FetchTimeout), stores.Articles, stores.Subscribers, notifier)
	if publisher != nil {
		cycle.WithPublisher(publisher)
	}
	return cycle
}
