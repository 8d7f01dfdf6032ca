package title

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tg_title_bot/internal/domain"
	"tg_title_bot/internal/render"
)

// Telegram bounds chat titles to 1..255; lengths are measured in bytes of
// the rendered title, matching the platform's encoded-length limit.
const (
	minTitleLength = 1
	maxTitleLength = 255
)

// ErrTitleLength reports a rendered title outside the platform bounds.
var ErrTitleLength = errors.New("rendered title length out of range")

// TitleSetter pushes a rendered title to the chat platform. A non-success
// platform response surfaces as an error.
type TitleSetter interface {
	SetChatTitle(ctx context.Context, chatID int64, title string) error
}

// ChatAPI is the full platform capability consumed by the handlers.
type ChatAPI interface {
	TitleSetter
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// Apply renders the group's template for the given instant and pushes the
// result to the platform. The length gate runs before any network call. On
// success LastTitle is updated in place; on failure the record is left
// untouched. Apply never mutates Enabled; callers decide failure policy.
func Apply(ctx context.Context, api TitleSetter, group *domain.Group, at time.Time) error {
	newTitle, err := render.Render(group.Segments, group.Delimiter, at, group.Timezone)
	if err != nil {
		return fmt.Errorf("render title: %w", err)
	}

	if len(newTitle) < minTitleLength || len(newTitle) > maxTitleLength {
		return fmt.Errorf("%w: %d bytes", ErrTitleLength, len(newTitle))
	}

	if err := api.SetChatTitle(ctx, group.ChatID, newTitle); err != nil {
		return fmt.Errorf("set chat title: %w", err)
	}

	group.LastTitle = newTitle
	return nil
}
