// Package title implements the group title automation engine: the mutation
// handlers guarding and editing per-chat configuration, and the apply cycle
// that turns a configuration into an actually-set chat title.
package title

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tg_title_bot/internal/domain"
	"tg_title_bot/internal/logging"
	"tg_title_bot/internal/render"
)

const botVersion = "1.0.0"

// User-facing replies. An empty reply means "send nothing"; permission
// denials are deliberately indistinguishable from unrecognized commands.
const (
	groupOnlyReply        = "This command is only allowed in group chats"
	applyFailedReply      = "Could not update the group title, check the bot's admin permissions"
	missingSegmentReply   = "Invalid command, no title segment found"
	missingDelimiterReply = "Invalid command, no delimiter found"
	missingTimezoneReply  = "Invalid command, no timezone name found"
	invalidTimezoneReply  = "Invalid command, could not parse the timezone name"
	missingTemplateReply  = "Invalid command, no title template found"
	disabledReply         = "Automatic title updates disabled"
)

// Request is one parsed command addressed to the bot, decoupled from the
// transport's update types.
type Request struct {
	ChatID    int64
	ChatTitle string
	IsGroup   bool
	UserID    int64
	Args      string
}

type groupStore interface {
	LoadOrCreate(ctx context.Context, chatID int64, currentTitle string) domain.Group
	Save(ctx context.Context, group domain.Group) error
}

// Handlers hosts the mutation operations. Every dependency is injected; the
// handlers hold no process-wide state.
type Handlers struct {
	store  groupStore
	api    ChatAPI
	logger *logrus.Entry
	now    func() time.Time
}

// Option customizes a Handlers instance.
type Option func(*Handlers)

// WithClock overrides the time source; used in tests.
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) {
		h.now = now
	}
}

// NewHandlers constructs the handler set.
func NewHandlers(store groupStore, api ChatAPI, logger *logrus.Entry, opts ...Option) *Handlers {
	if logger == nil {
		logger = logging.Logger()
	}

	h := &Handlers{
		store:  store,
		api:    api,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// load runs the shared handler preamble: reject non-group chats, load or
// create the record, and consult the permission gate. ok is false when the
// handler must stop; reply then carries the response (possibly empty for a
// silent permission denial).
func (h *Handlers) load(ctx context.Context, req Request) (group domain.Group, reply string, ok bool, err error) {
	if !req.IsGroup {
		return domain.Group{}, groupOnlyReply, false, nil
	}

	group = h.store.LoadOrCreate(ctx, req.ChatID, req.ChatTitle)

	allowed, err := authorize(ctx, h.api, group, req.UserID)
	if err != nil {
		return domain.Group{}, "", false, fmt.Errorf("check permission: %w", err)
	}
	if !allowed {
		h.logger.WithFields(logging.Fields{
			"event":   "permission_denied",
			"chat_id": req.ChatID,
			"user_id": req.UserID,
		}).Info("permission denied")
		return domain.Group{}, "", false, nil
	}

	return group, "", true, nil
}

// applyIfEnabled re-applies the title after a template-affecting mutation.
// On apply failure the group is flipped back to disabled and persisted
// before the failure is reported, so a group never stays marked enabled
// after a confirmed failure. Returns a non-empty reply when the caller
// should stop and respond with it.
func (h *Handlers) applyIfEnabled(ctx context.Context, group *domain.Group) (string, error) {
	if !group.Enabled {
		return "", nil
	}

	if err := Apply(ctx, h.api, group, h.now()); err != nil {
		h.logger.WithFields(logging.Fields{
			"event":   "title_apply_failed",
			"chat_id": group.ChatID,
		}).WithError(err).Warn("title apply failed")

		group.Enabled = false
		if saveErr := h.store.Save(ctx, *group); saveErr != nil {
			return "", fmt.Errorf("save group after failed apply: %w", saveErr)
		}
		return applyFailedReply, nil
	}
	return "", nil
}

func (h *Handlers) templateReply(group domain.Group) string {
	return "Title template is now: " + render.JoinSegments(group.Segments, group.Delimiter)
}

// Start replies with a version banner; works in any chat.
func (h *Handlers) Start(context.Context, Request) (string, error) {
	return "Title bot " + botVersion, nil
}

// Echo replies with the command's argument text; works in any chat.
func (h *Handlers) Echo(_ context.Context, req Request) (string, error) {
	if req.Args == "" {
		return "wut?", nil
	}
	return req.Args, nil
}

// Status reports the group's stored configuration.
func (h *Handlers) Status(ctx context.Context, req Request) (string, error) {
	group, reply, ok, err := h.load(ctx, req)
	if !ok {
		return reply, err
	}

	return fmt.Sprintf(
		"Current title: %s\nChat ID: %d\nAuto updates enabled: %t\nTitle segments: %q\nDelimiter: %s\nTimezone: %s\nRequire admin: %t",
		req.ChatTitle,
		group.ChatID,
		group.Enabled,
		group.Segments,
		group.Delimiter,
		group.Timezone,
		group.RequireAdmin,
	), nil
}

// Enable turns automatic title updates on and applies the template
// immediately. A failed apply flips the group straight back to disabled.
func (h *Handlers) Enable(ctx context.Context, req Request) (string, error) {
	group, reply, ok, err := h.load(ctx, req)
	if !ok {
		return reply, err
	}

	group.Enabled = true
	if reply, err := h.applyIfEnabled(ctx, &group); err != nil || reply != "" {
		return reply, err
	}
	if err := h.store.Save(ctx, group); err != nil {
		return "", fmt.Errorf("save group: %w", err)
	}

	h.logger.WithFields(logging.Fields{
		"event":   "title_enabled",
		"chat_id": group.ChatID,
	}).Info("automatic title updates enabled")

	return "Automatic title updates enabled, current template: " +
		render.JoinSegments(group.Segments, group.Delimiter), nil
}

// Disable turns automatic title updates off. No render is attempted.
func (h *Handlers) Disable(ctx context.Context, req Request) (string, error) {
	group, reply, ok, err := h.load(ctx, req)
	if !ok {
		return reply, err
	}

	group.Enabled = false
	if err := h.store.Save(ctx, group); err != nil {
		return "", fmt.Errorf("save group: %w", err)
	}

	h.logger.WithFields(logging.Fields{
		"event":   "title_disabled",
		"chat_id": group.ChatID,
	}).Info("automatic title updates disabled")

	return disabledReply, nil
}

// SetTemplate replaces the whole template with a single segment.
func (h *Handlers) SetTemplate(ctx context.Context, req Request) (string, error) {
	if !req.IsGroup {
		return groupOnlyReply, nil
	}
	if req.Args == "" {
		return missingTemplateReply, nil
	}

	group, reply, ok, err := h.load(ctx, req)
	if !ok {
		return reply, err
	}

	group.SetTemplate(req.Args)
	return h.mutated(ctx, group)
}

// SetDelimiter replaces the segment delimiter.
func (h *Handlers) SetDelimiter(ctx context.Context, req Request) (string, error) {
	if !req.IsGroup {
		return groupOnlyReply, nil
	}
	if req.Args == "" {
		return missingDelimiterReply, nil
	}

	group, reply, ok, err := h.load(ctx, req)
	if !ok {
		return reply, err
	}

	group.Delimiter = req.Args
	return h.mutated(ctx, group)
}

// SetTimezone replaces the render timezone. The name must parse as an IANA
// timezone at write time; records that later become unparsable still render
// with a UTC fallback.
func (h *Handlers) SetTimezone(ctx context.Context, req Request) (string, error) {
	if !req.IsGroup {
		return groupOnlyReply, nil
	}
	if req.Args == "" {
		return missingTimezoneReply, nil
	}
	if !render.ValidTimezone(req.Args) {
		return invalidTimezoneReply, nil
	}

	group, reply, ok, err := h.load(ctx, req)
	if !ok {
		return reply, err
	}

	group.Timezone = req.Args
	if reply, err := h.applyIfEnabled(ctx, &group); err != nil || reply != "" {
		return reply, err
	}
	if err := h.store.Save(ctx, group); err != nil {
		return "", fmt.Errorf("save group: %w", err)
	}
	return "Timezone changed to: " + group.Timezone, nil
}

// Push appends a template segment.
func (h *Handlers) Push(ctx context.Context, req Request) (string, error) {
	return h.pushSegment(ctx, req, (*domain.Group).PushSegment)
}

// PushFront prepends a template segment.
func (h *Handlers) PushFront(ctx context.Context, req Request) (string, error) {
	return h.pushSegment(ctx, req, (*domain.Group).PushFrontSegment)
}

// Pop removes the last template segment; a no-op when only one remains.
func (h *Handlers) Pop(ctx context.Context, req Request) (string, error) {
	return h.popSegment(ctx, req, (*domain.Group).PopSegment)
}

// PopFront removes the first template segment; a no-op when only one remains.
func (h *Handlers) PopFront(ctx context.Context, req Request) (string, error) {
	return h.popSegment(ctx, req, (*domain.Group).PopFrontSegment)
}

func (h *Handlers) pushSegment(ctx context.Context, req Request, push func(*domain.Group, string)) (string, error) {
	if !req.IsGroup {
		return groupOnlyReply, nil
	}
	if req.Args == "" {
		return missingSegmentReply, nil
	}

	group, reply, ok, err := h.load(ctx, req)
	if !ok {
		return reply, err
	}

	push(&group, req.Args)
	return h.mutated(ctx, group)
}

func (h *Handlers) popSegment(ctx context.Context, req Request, pop func(*domain.Group) bool) (string, error) {
	group, reply, ok, err := h.load(ctx, req)
	if !ok {
		return reply, err
	}

	pop(&group)
	return h.mutated(ctx, group)
}

// mutated finishes a template-affecting mutation: re-apply when enabled,
// persist, and report the new template. Even when disabled the template is
// reported so admins can stage changes before enabling.
func (h *Handlers) mutated(ctx context.Context, group domain.Group) (string, error) {
	if reply, err := h.applyIfEnabled(ctx, &group); err != nil || reply != "" {
		return reply, err
	}
	if err := h.store.Save(ctx, group); err != nil {
		return "", fmt.Errorf("save group: %w", err)
	}
	return h.templateReply(group), nil
}
