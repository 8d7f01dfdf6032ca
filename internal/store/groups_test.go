package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"tg_title_bot/internal/domain"
)

// scriptedKV serves pre-built listing pages and scripted get/put behavior.
type scriptedKV struct {
	pages   map[string]Page
	values  map[string][]byte
	putErr  error
	putKeys []string
}

func newScriptedKV() *scriptedKV {
	return &scriptedKV{
		pages:  make(map[string]Page),
		values: make(map[string][]byte),
	}
}

func (s *scriptedKV) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *scriptedKV) Put(_ context.Context, key string, value []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.putKeys = append(s.putKeys, key)
	s.values[key] = value
	return nil
}

func (s *scriptedKV) ListPage(_ context.Context, _, cursor string) (Page, error) {
	page, ok := s.pages[cursor]
	if !ok {
		return Page{}, errors.New("unexpected cursor " + cursor)
	}
	return page, nil
}

func (s *scriptedKV) Ping(context.Context) error  { return nil }
func (s *scriptedKV) Close(context.Context) error { return nil }

func TestListKeysConcatenatesAllPagesInOrder(t *testing.T) {
	kv := newScriptedKV()
	kv.pages[""] = Page{Keys: []string{"group--100", "group-1"}, Cursor: "c1", Complete: false}
	kv.pages["c1"] = Page{Keys: []string{"group-2", "group-3"}, Complete: true}

	groups := NewGroupStore(kv, nullLogger(t))

	keys, err := groups.ListKeys(context.Background())
	if err != nil {
		t.Fatalf("ListKeys returned error: %v", err)
	}

	want := []string{"-100", "1", "2", "3"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("expected keys %v, got %v", want, keys)
	}
}

func TestListKeysDropsDuplicatesAcrossPages(t *testing.T) {
	kv := newScriptedKV()
	kv.pages[""] = Page{Keys: []string{"group-1", "group-2"}, Cursor: "c1", Complete: false}
	kv.pages["c1"] = Page{Keys: []string{"group-2", "group-3"}, Complete: true}

	groups := NewGroupStore(kv, nullLogger(t))

	keys, err := groups.ListKeys(context.Background())
	if err != nil {
		t.Fatalf("ListKeys returned error: %v", err)
	}

	want := []string{"1", "2", "3"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("expected deduplicated keys %v, got %v", want, keys)
	}
}

func TestLoadOrCreateSwallowsInitialSaveFailure(t *testing.T) {
	kv := newScriptedKV()
	kv.putErr = errors.New("backend down")

	groups := NewGroupStore(kv, nullLogger(t))

	group := groups.LoadOrCreate(context.Background(), 99, "New Group")
	if group.ChatID != 99 {
		t.Fatalf("expected usable in-memory default, got %+v", group)
	}
	if group.Segments[0] != "New Group" {
		t.Fatalf("expected segment from chat title, got %v", group.Segments)
	}
}

func TestLoadOrCreateReturnsStoredRecord(t *testing.T) {
	kv := newScriptedKV()
	stored := domain.NewGroup(7, "Stored")
	stored.Enabled = true
	data, err := stored.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	kv.values["group-7"] = data

	groups := NewGroupStore(kv, nullLogger(t))

	group := groups.LoadOrCreate(context.Background(), 7, "ignored")
	if !group.Enabled || group.Segments[0] != "Stored" {
		t.Fatalf("expected stored record, got %+v", group)
	}
	if len(kv.putKeys) != 0 {
		t.Fatalf("expected no write when the record exists, got %v", kv.putKeys)
	}
}
