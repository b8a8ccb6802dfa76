package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// noExpiry 不过期的会话使用的过期时间
var noExpiry = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// MongoStore 基于 MongoDB 的会话存储
type MongoStore struct {
	collection *mongo.Collection
}

type mongoSession struct {
	ID        string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore 创建 MongoDB 会话存储
func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection}
}

func (s *MongoStore) Load(ctx context.Context, id string) (*State, error) {
	filter := bson.M{"_id": id, "expiresAt": bson.M{"$gt": time.Now()}}

	var doc mongoSession
	if err := s.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: failed to load %s from mongodb: %w", id, err)
	}
	return Decode(doc.Data)
}

func (s *MongoStore) Save(ctx context.Context, id string, state *State, ttl time.Duration) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	doc := mongoSession{ID: id, Data: data, ExpiresAt: noExpiry}
	if ttl > 0 {
		doc.ExpiresAt = time.Now().Add(ttl)
	}
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("session: failed to save %s to mongodb: %w", id, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("session: failed to delete %s from mongodb: %w", id, err)
	}
	return nil
}

func (s *MongoStore) Collect(ctx context.Context, before time.Time) (int, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": before}})
	if err != nil {
		return 0, fmt.Errorf("session: failed to collect expired sessions: %w", err)
	}
	return int(res.DeletedCount), nil
}
