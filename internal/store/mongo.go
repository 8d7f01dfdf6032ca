package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tg_title_bot/internal/config"
)

// CollectionKV is the single collection backing the key/value contract.
const CollectionKV = "kv"

// mongoListBatch caps keys per listing page; a var so tests can force
// multi-page listings with a handful of documents.
var mongoListBatch = int64(128)

// mongoClient captures the subset of mongo.Client behavior we rely on to
// allow lightweight stubbing in tests without a live Mongo deployment.
type mongoClient interface {
	Ping(context.Context, *readpref.ReadPref) error
	Database(string, ...*options.DatabaseOptions) *mongo.Database
	Disconnect(context.Context) error
}

// kvCollection is the narrow collection surface MongoKV needs; fakes
// implement it in tests.
type kvCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// connectMongo is overridable for tests.
var connectMongo = func(ctx context.Context, opts *options.ClientOptions) (mongoClient, error) {
	return mongo.Connect(ctx, opts)
}

type kvDocument struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// MongoKV stores each record as one document: _id is the key, value is an
// opaque blob. Prefix listing pages through keys in ascending order using the
// last returned key as the cursor.
type MongoKV struct {
	client     mongoClient
	collection kvCollection
}

// NewMongoKV connects to MongoDB and verifies connectivity with a ping.
func NewMongoKV(ctx context.Context, cfg config.Config) (*MongoKV, error) {
	client, err := connectMongo(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoKV{
		client:     client,
		collection: client.Database(cfg.MongoDB).Collection(CollectionKV),
	}, nil
}

// Get fetches the value stored under key.
func (m *MongoKV) Get(ctx context.Context, key string) ([]byte, error) {
	result := m.collection.FindOne(ctx, bson.M{"_id": key})
	if result == nil {
		return nil, errors.New("find key returned no result")
	}

	var doc kvDocument
	if err := result.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("find key %s: %w", key, err)
	}

	return doc.Value, nil
}

// Put stores value under key, overwriting any previous value.
func (m *MongoKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put key %s: %w", key, err)
	}
	return nil
}

// ListPage returns one page of keys starting with prefix, ordered by key.
// An empty cursor starts the listing from the beginning.
func (m *MongoKV) ListPage(ctx context.Context, prefix, cursor string) (Page, error) {
	idFilter := bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}
	if cursor != "" {
		idFilter["$gt"] = cursor
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(mongoListBatch).
		SetProjection(bson.M{"_id": 1})

	result, err := m.collection.Find(ctx, bson.M{"_id": idFilter}, opts)
	if err != nil {
		return Page{}, fmt.Errorf("list keys: %w", err)
	}
	defer result.Close(ctx)

	var keys []string
	for result.Next(ctx) {
		var doc kvDocument
		if err := result.Decode(&doc); err != nil {
			return Page{}, fmt.Errorf("decode key document: %w", err)
		}
		keys = append(keys, doc.Key)
	}
	if err := result.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate keys: %w", err)
	}

	page := Page{Keys: keys, Complete: int64(len(keys)) < mongoListBatch}
	if !page.Complete {
		page.Cursor = keys[len(keys)-1]
	}
	return page, nil
}

// Ping verifies the connection to the primary.
func (m *MongoKV) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the Mongo client.
func (m *MongoKV) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
