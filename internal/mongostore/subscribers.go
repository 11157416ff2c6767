// Package mongostore keeps bot subscribers in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"newsbot/internal/db"
	"newsbot/internal/models"
)

const CollectionName = "users"

// SubscriberRegistry implements the subscriber registry on top of a Mongo
// collection with one document per user_id.
type SubscriberRegistry struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewSubscriberRegistry(coll *mongo.Collection) *SubscriberRegistry {
	return &SubscriberRegistry{coll: coll, now: time.Now}
}

// EnsureIndexes creates the unique index on user_id.
func (r *SubscriberRegistry) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create subscriber index: %w", err)
	}
	return nil
}

// Register upserts the subscriber. Fields are only written on insert, so
// registering twice leaves the existing document untouched.
func (r *SubscriberRegistry) Register(ctx context.Context, id int64, displayName string) error {
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":             id,
			"username":            displayName,
			"last_interaction_at": nil,
			"created_at":          r.now().UTC(),
		},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"user_id": id}, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		log.Printf("Error registering subscriber %d: %v", id, err)
		return unavailable("register subscriber", err)
	}
	return nil
}

// Touch sets last_interaction_at. Unknown ids are logged and ignored.
func (r *SubscriberRegistry) Touch(ctx context.Context, id int64, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"user_id": id}, bson.M{"$set": bson.M{"last_interaction_at": at}})
	if err != nil {
		return unavailable("touch subscriber", err)
	}
	if res.MatchedCount == 0 {
		log.Printf("Touch for unknown subscriber %d ignored", id)
	}
	return nil
}

// AllSubscriberIDs returns a snapshot of every registered user id.
func (r *SubscriberRegistry) AllSubscriberIDs(ctx context.Context) ([]int64, error) {
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetProjection(bson.D{{Key: "user_id", Value: 1}}))
	if err != nil {
		return nil, unavailable("list subscribers", err)
	}

	var docs []struct {
		UserID int64 `bson:"user_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, unavailable("decode subscribers", err)
	}

	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.UserID)
	}
	return ids, nil
}

// Get returns a single subscriber document.
func (r *SubscriberRegistry) Get(ctx context.Context, id int64) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.coll.FindOne(ctx, bson.M{"user_id": id}).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, unavailable("get subscriber", err)
	}
	return &sub, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", db.ErrStoreUnavailable, op, err)
}
