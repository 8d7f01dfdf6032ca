package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"tg_title_bot/internal/domain"
	"tg_title_bot/internal/logging"
)

// GroupKeyPrefix namespaces group records in the key space. The remainder of
// the key is the decimal chat id, which may be negative.
const GroupKeyPrefix = "group-"

// GroupStore persists group records over any KV backend.
type GroupStore struct {
	kv     KV
	logger *logrus.Entry
}

// NewGroupStore constructs a GroupStore over the provided backend.
func NewGroupStore(kv KV, logger *logrus.Entry) *GroupStore {
	if logger == nil {
		logger = logging.Logger()
	}

	return &GroupStore{
		kv:     kv,
		logger: logger,
	}
}

func groupKey(chatID int64) string {
	return GroupKeyPrefix + strconv.FormatInt(chatID, 10)
}

// Load fetches the record for a chat. Returns ErrNotFound (wrapped) when the
// chat was never configured.
func (s *GroupStore) Load(ctx context.Context, chatID int64) (domain.Group, error) {
	if s == nil || s.kv == nil {
		return domain.Group{}, errors.New("group store is not initialized")
	}

	data, err := s.kv.Get(ctx, groupKey(chatID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Group{}, err
		}
		return domain.Group{}, fmt.Errorf("load group %d: %w", chatID, err)
	}

	return domain.DecodeGroup(data)
}

// Save persists the record, overwriting any previous version.
func (s *GroupStore) Save(ctx context.Context, group domain.Group) error {
	if s == nil || s.kv == nil {
		return errors.New("group store is not initialized")
	}

	data, err := group.Encode()
	if err != nil {
		return err
	}

	if err := s.kv.Put(ctx, groupKey(group.ChatID), data); err != nil {
		return fmt.Errorf("save group %d: %w", group.ChatID, err)
	}
	return nil
}

// LoadOrCreate returns the stored record, or a default one built from the
// chat's current title when the chat is unknown or its record cannot be
// read. The default is persisted best-effort: a failed initial save is
// logged and swallowed since the in-memory record is still usable for the
// current operation.
func (s *GroupStore) LoadOrCreate(ctx context.Context, chatID int64, currentTitle string) domain.Group {
	group, err := s.Load(ctx, chatID)
	if err == nil {
		return group
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.WithField("chat_id", chatID).WithError(err).Warn("group record unreadable, recreating defaults")
	}

	group = domain.NewGroup(chatID, currentTitle)
	if saveErr := s.Save(ctx, group); saveErr != nil {
		s.logger.WithField("chat_id", chatID).WithError(saveErr).Warn("initial group save failed")
	}
	return group
}

// ListKeys enumerates every stored group key, driving the backend's
// pagination until it reports the listing complete. Returned entries are the
// raw decimal id suffixes with the namespace prefix stripped.
func (s *GroupStore) ListKeys(ctx context.Context) ([]string, error) {
	if s == nil || s.kv == nil {
		return nil, errors.New("group store is not initialized")
	}

	var (
		ids    []string
		seen   = make(map[string]struct{})
		cursor string
	)
	for {
		page, err := s.kv.ListPage(ctx, GroupKeyPrefix, cursor)
		if err != nil {
			return nil, fmt.Errorf("list group keys: %w", err)
		}

		for _, key := range page.Keys {
			id := strings.TrimPrefix(key, GroupKeyPrefix)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}

		if page.Complete {
			return ids, nil
		}
		cursor = page.Cursor
	}
}

// Count reports how many groups have a stored record; used for diagnostics.
func (s *GroupStore) Count(ctx context.Context) (int, error) {
	ids, err := s.ListKeys(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
