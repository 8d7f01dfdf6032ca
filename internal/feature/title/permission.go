package title

import (
	"context"
	"errors"

	"tg_title_bot/internal/domain"
)

// ErrMissingUser reports a mutation request that carries no identifiable
// sender while the group requires admin rights.
var ErrMissingUser = errors.New("unable to retrieve user information")

type memberChecker interface {
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// authorize decides whether the requesting user may mutate the group's
// configuration. Groups without require_admin accept anyone. Otherwise the
// live chat-member status decides; a failed membership query propagates as
// an error, never as a silent deny.
func authorize(ctx context.Context, api memberChecker, group domain.Group, userID int64) (bool, error) {
	if !group.RequireAdmin {
		return true, nil
	}
	if userID == 0 {
		return false, ErrMissingUser
	}
	return api.IsAdmin(ctx, group.ChatID, userID)
}
