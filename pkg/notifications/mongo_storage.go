package notifications

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	mongox "github.com/dmitrymomot/notifykit/pkg/mongo"
)

// DefaultCollection is the MongoDB collection holding notifications.
const DefaultCollection = "notifications"

// MongoStorage persists notifications in a MongoDB collection.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage returns a storage over db and ensures its indexes exist.
func NewMongoStorage(ctx context.Context, db *mongo.Database) (*MongoStorage, error) {
	s := &MongoStorage{coll: db.Collection(DefaultCollection)}

	err := mongox.EnsureIndexes(ctx, s.coll,
		mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}}},
	)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	return s, nil
}

func (s *MongoStorage) Create(ctx context.Context, notif Notification) error {
	if notif.Payload == nil {
		notif.Payload = map[string]any{}
	}
	if _, err := s.coll.InsertOne(ctx, notif); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

func (s *MongoStorage) Get(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, mongoErr(err)
	}
	return &n, nil
}

func (s *MongoStorage) List(ctx context.Context, userID string, page, limit int) (*Page, error) {
	page, skip := offset(page, limit)
	filter := bson.M{"user_id": userID}

	result := &Page{Items: []Notification{}, Page: page, Limit: limit}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	result.Total = int(total)

	if limit <= 0 || skip >= result.Total {
		return result, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	if err := cur.All(ctx, &result.Items); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	return result, nil
}

func (s *MongoStorage) MarkRead(ctx context.Context, id, userID string) (*Notification, error) {
	var n Notification
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err != nil {
		return nil, mongoErr(err)
	}
	return &n, nil
}

func (s *MongoStorage) MarkAllRead(ctx context.Context, userID string) (int, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	return int(res.ModifiedCount), nil
}

func (s *MongoStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
	if err != nil {
		return 0, errors.Join(ErrStorage, err)
	}
	return int(n), nil
}

// MarkDelivered relies on the {delivered_at: null} filter, so concurrent
// callers race on the document and only one update matches.
func (s *MongoStorage) MarkDelivered(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "delivered_at": nil},
		bson.M{"$set": bson.M{"delivered_at": at}},
	)
	if err != nil {
		return false, errors.Join(ErrStorage, err)
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}

	exists, err := s.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Join(ErrStorage, err)
	}
	if exists == 0 {
		return false, ErrNotificationNotFound
	}
	return false, nil
}

func mongoErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotificationNotFound
	}
	return errors.Join(ErrStorage, err)
}
