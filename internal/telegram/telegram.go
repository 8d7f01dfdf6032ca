// Package telegram hosts the Telegram client, command routing, and the chat
// platform capabilities consumed by the title engine.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_title_bot/internal/config"
	"tg_title_bot/internal/feature/title"
	"tg_title_bot/internal/logging"
)

// Only plain messages matter to the bot; everything else is noise.
var defaultAllowedUpdates = bot.AllowedUpdates{"message"}

// botAPI captures the subset of bot.Bot behavior we rely on to allow
// lightweight stubbing in tests without a live Telegram connection.
type botAPI interface {
	Start(ctx context.Context)
	GetMe(ctx context.Context) (*models.User, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SetChatTitle(ctx context.Context, params *bot.SetChatTitleParams) (bool, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
}

// createBot is overridable for tests.
var createBot = func(token string, options ...bot.Option) (botAPI, error) {
	return bot.New(token, options...)
}

type commandFunc func(ctx context.Context, req title.Request) (string, error)

// Client wraps the Telegram bot instance, the command table, and logging
// dependencies. It implements title.ChatAPI.
type Client struct {
	api      botAPI
	logger   *logrus.Entry
	commands map[string]commandFunc
	username string
}

// NewClient initializes the Telegram bot with long polling. The client is
// also the chat platform capability handed to the title engine, so the
// command table is bound separately via RegisterCommands once the handlers
// exist.
func NewClient(cfg config.Config, logger *logrus.Entry) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{logger: logger}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	client.api = tgBot
	return client, nil
}

// RegisterCommands builds the command table. The table is a closed set built
// once before polling starts; commands map straight onto handler methods with
// no runtime registration.
func (c *Client) RegisterCommands(handlers *title.Handlers) error {
	if handlers == nil {
		return errors.New("title handlers are required")
	}

	c.commands = map[string]commandFunc{
		"start":         handlers.Start,
		"echo":          handlers.Echo,
		"status":        handlers.Status,
		"enable":        handlers.Enable,
		"disable":       handlers.Disable,
		"set_template":  handlers.SetTemplate,
		"set_delimiter": handlers.SetDelimiter,
		"set_timezone":  handlers.SetTimezone,
		"push":          handlers.Push,
		"push_front":    handlers.PushFront,
		"pop":           handlers.Pop,
		"pop_front":     handlers.PopFront,
	}
	return nil
}

// Start resolves the bot's username (for /cmd@name addressing) and begins
// receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	if me, err := c.api.GetMe(ctx); err != nil {
		c.logger.WithField("event", "get_me_failed").WithError(err).Warn("could not resolve bot username, @-addressed commands will be ignored")
	} else {
		c.username = strings.ToLower(me.Username)
	}

	c.logger.WithFields(logging.Fields{
		"event":    "telegram_listen",
		"username": c.username,
	}).Info("starting telegram long polling")

	c.api.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

// SetChatTitle pushes a new chat title, converting a non-success platform
// response into an error.
func (c *Client) SetChatTitle(ctx context.Context, chatID int64, newTitle string) error {
	ok, err := c.api.SetChatTitle(ctx, &bot.SetChatTitleParams{
		ChatID: chatID,
		Title:  newTitle,
	})
	if err != nil {
		return fmt.Errorf("set chat title: %w", err)
	}
	if !ok {
		return errors.New("telegram rejected the title change")
	}
	return nil
}

// IsAdmin reports whether the user is the chat's creator or an administrator.
func (c *Client) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := c.api.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	if member == nil {
		return false, errors.New("empty chat member response")
	}

	return member.Type == models.ChatMemberTypeOwner ||
		member.Type == models.ChatMemberTypeAdministrator, nil
}

func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	msg := update.Message

	name, args, ok := parseCommand(msg.Text, c.username)
	if !ok {
		return
	}

	handler, known := c.commands[name]
	if !known {
		c.logger.WithFields(logging.Fields{
			"event":   "unknown_command",
			"command": name,
			"chat_id": msg.Chat.ID,
		}).Debug("no command matched, ignoring")
		return
	}

	req := title.Request{
		ChatID:    msg.Chat.ID,
		ChatTitle: msg.Chat.Title,
		IsGroup:   isGroupChat(msg.Chat),
		UserID:    senderID(msg.From),
		Args:      args,
	}

	entry := c.logger.WithFields(logging.Fields{
		"event":   "command",
		"command": name,
		"chat_id": req.ChatID,
		"user_id": req.UserID,
	})

	reply, err := handler(ctx, req)
	if err != nil {
		entry.WithError(err).Error("command handler failed")
		return
	}
	if reply == "" {
		return
	}

	if _, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            reply,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID, ChatID: msg.Chat.ID},
	}); err != nil {
		entry.WithError(err).Error("could not send reply")
		return
	}

	entry.Debug("command handled")
}

// parseCommand extracts the command token and argument remainder from a
// message. Both `/cmd args` and `/cmd@botusername args` forms are accepted;
// a mention of another bot is ignored.
func parseCommand(text, username string) (name, args string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", "", false
	}

	token := trimmed
	if idx := strings.IndexByte(trimmed, ' '); idx >= 0 {
		token = trimmed[:idx]
		args = strings.TrimSpace(trimmed[idx+1:])
	}

	name = strings.ToLower(strings.TrimPrefix(token, "/"))
	if at := strings.IndexByte(name, '@'); at >= 0 {
		mention := name[at+1:]
		name = name[:at]
		if username == "" || mention != username {
			return "", "", false
		}
	}
	if name == "" {
		return "", "", false
	}

	return name, args, true
}

func isGroupChat(chat models.Chat) bool {
	return chat.Type == models.ChatTypeGroup || chat.Type == models.ChatTypeSupergroup
}

func senderID(user *models.User) int64 {
	if user == nil {
		return 0
	}
	return user.ID
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}
