package store

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeKVCollection emulates the narrow collection surface MongoKV uses,
// keeping documents in a sorted in-memory map.
type fakeKVCollection struct {
	t    *testing.T
	docs map[string][]byte
}

func newFakeKVCollection(t *testing.T) *fakeKVCollection {
	t.Helper()
	return &fakeKVCollection{t: t, docs: make(map[string][]byte)}
}

func (f *fakeKVCollection) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	key := f.filterKey(filter)
	value, ok := f.docs[key]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(kvDocument{Key: key, Value: value}, nil, nil)
}

func (f *fakeKVCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	key := f.filterKey(filter)

	set, ok := update.(bson.M)["$set"].(bson.M)
	if !ok {
		return nil, errors.New("unexpected update document")
	}
	value, ok := set["value"].([]byte)
	if !ok {
		return nil, errors.New("unexpected value type")
	}

	_, existed := f.docs[key]
	f.docs[key] = value

	result := &mongo.UpdateResult{MatchedCount: 1}
	if !existed {
		result = &mongo.UpdateResult{UpsertedCount: 1, UpsertedID: key}
	}
	return result, nil
}

func (f *fakeKVCollection) Find(_ context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	idFilter, ok := filter.(bson.M)["_id"].(bson.M)
	if !ok {
		return nil, errors.New("unexpected find filter")
	}

	pattern, _ := idFilter["$regex"].(string)
	prefix := strings.TrimPrefix(pattern, "^")
	after, _ := idFilter["$gt"].(string)

	var limit int64 = -1
	for _, opt := range opts {
		if opt != nil && opt.Limit != nil {
			limit = *opt.Limit
		}
	}

	var keys []string
	for key := range f.docs {
		if strings.HasPrefix(key, prefix) && (after == "" || key > after) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if limit >= 0 && int64(len(keys)) > limit {
		keys = keys[:limit]
	}

	docs := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		docs = append(docs, kvDocument{Key: key, Value: f.docs[key]})
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}

func (f *fakeKVCollection) filterKey(filter interface{}) string {
	f.t.Helper()

	doc, ok := filter.(bson.M)
	if !ok {
		f.t.Fatalf("unexpected filter type %T", filter)
	}
	key, ok := doc["_id"].(string)
	if !ok {
		f.t.Fatalf("missing _id filter in %v", doc)
	}
	return key
}

func newFakeMongoKV(t *testing.T) (*MongoKV, *fakeKVCollection) {
	t.Helper()
	coll := newFakeKVCollection(t)
	return &MongoKV{collection: coll}, coll
}

func TestMongoKVGetPut(t *testing.T) {
	kv, _ := newFakeMongoKV(t)
	ctx := context.Background()

	if _, err := kv.Get(ctx, "group-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := kv.Put(ctx, "group-1", []byte("first")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := kv.Put(ctx, "group-1", []byte("second")); err != nil {
		t.Fatalf("overwrite Put returned error: %v", err)
	}

	value, err := kv.Get(ctx, "group-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(value) != "second" {
		t.Fatalf("expected last write to win, got %q", value)
	}
}

func TestMongoKVListPaginates(t *testing.T) {
	restore := mongoListBatch
	mongoListBatch = 2
	t.Cleanup(func() { mongoListBatch = restore })

	kv, coll := newFakeMongoKV(t)
	ctx := context.Background()

	for _, key := range []string{"group--9", "group-1", "group-2", "group-3", "group-4"} {
		coll.docs[key] = []byte("x")
	}
	coll.docs["other-1"] = []byte("x")

	var got []string
	cursor := ""
	pages := 0
	for {
		page, err := kv.ListPage(ctx, "group-", cursor)
		if err != nil {
			t.Fatalf("ListPage returned error: %v", err)
		}
		pages++
		got = append(got, page.Keys...)
		if page.Complete {
			break
		}
		if page.Cursor == "" {
			t.Fatalf("incomplete page without cursor")
		}
		cursor = page.Cursor
	}

	want := []string{"group--9", "group-1", "group-2", "group-3", "group-4"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected keys %v, got %v", want, got)
	}
	if pages < 3 {
		t.Fatalf("expected at least 3 pages with batch size 2, got %d", pages)
	}
}
