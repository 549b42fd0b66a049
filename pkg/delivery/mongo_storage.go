package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	mongox "github.com/dmitrymomot/notifykit/pkg/mongo"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// DefaultCollection is the MongoDB collection holding delivery entries.
const DefaultCollection = "delivery_queue"

var oldestFirst = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// MongoStorage persists delivery entries in MongoDB. Claims and resolutions
// are single-document conditional updates filtered on status.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage returns a storage over db and ensures its indexes exist.
func NewMongoStorage(ctx context.Context, db *mongo.Database) (*MongoStorage, error) {
	s := &MongoStorage{coll: db.Collection(DefaultCollection)}

	err := mongox.EnsureIndexes(ctx, s.coll,
		mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "available_at", Value: 1}, {Key: "created_at", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "notification_id", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}}},
	)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	return s, nil
}

func (s *MongoStorage) Enqueue(ctx context.Context, notificationID string, channel notifications.Channel, availableAt time.Time) (*Entry, error) {
	now := time.Now().UTC()
	e := Entry{
		ID:             uuid.NewString(),
		NotificationID: notificationID,
		Channel:        channel,
		Status:         StatusPending,
		AvailableAt:    availableAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.coll.InsertOne(ctx, e); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return &e, nil
}

func (s *MongoStorage) FetchDue(ctx context.Context, now time.Time, limit int) ([]Entry, error) {
	return s.find(ctx, bson.M{
		"status":       StatusPending,
		"available_at": bson.M{"$lte": now},
	}, limit)
}

func (s *MongoStorage) Claim(ctx context.Context, id string, now time.Time) (*Entry, error) {
	var e Entry
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": StatusPending},
		bson.M{"$set": bson.M{
			"status":     StatusProcessing,
			"claimed_at": now,
			"updated_at": now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Join(ErrStorage, err)
	}

	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrClaimLost
}

func (s *MongoStorage) MarkSent(ctx context.Context, id string, attempts int, now time.Time) error {
	return s.resolve(ctx, id, bson.M{
		"status":     StatusSent,
		"attempts":   attempts,
		"updated_at": now,
	})
}

func (s *MongoStorage) MarkFailed(ctx context.Context, id string, upd FailureUpdate) error {
	if upd.Status != StatusPending && upd.Status != StatusFailed {
		return fmt.Errorf("%w: %q after failure", ErrInvalidStatus, upd.Status)
	}
	return s.resolve(ctx, id, bson.M{
		"status":       upd.Status,
		"attempts":     upd.Attempts,
		"last_error":   upd.LastError,
		"available_at": upd.AvailableAt,
		"updated_at":   upd.UpdatedAt,
	})
}

func (s *MongoStorage) ListByStatus(ctx context.Context, status Status, limit int) ([]Entry, error) {
	return s.find(ctx, bson.M{"status": status}, limit)
}

func (s *MongoStorage) ListByNotification(ctx context.Context, notificationID string) ([]Entry, error) {
	return s.find(ctx, bson.M{"notification_id": notificationID}, 0)
}

func (s *MongoStorage) PurgeFailed(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{
		"status":     StatusFailed,
		"updated_at": bson.M{"$lt": olderThan},
	})
	if err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStorage) ReleaseStale(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"status": StatusProcessing, "claimed_at": bson.M{"$lt": olderThan}},
		bson.M{"$set": bson.M{
			"status":     StatusPending,
			"claimed_at": nil,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	return int(res.ModifiedCount), nil
}

// resolve applies set to a processing entry.
func (s *MongoStorage) resolve(ctx context.Context, id string, set bson.M) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusProcessing},
		bson.M{"$set": set},
	)
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	if err := s.exists(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: entry %s", ErrNotProcessing, id)
}

func (s *MongoStorage) exists(ctx context.Context, id string) error {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return errors.Join(ErrStorage, err)
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (s *MongoStorage) find(ctx context.Context, filter bson.M, limit int) ([]Entry, error) {
	opts := options.Find().SetSort(oldestFirst)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	entries := []Entry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	return entries, nil
}
