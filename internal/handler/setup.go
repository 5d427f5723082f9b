package handler

import (
	"context"
	"fmt"
	"sync"

	"tg-moderator/internal/config"
	"tg-moderator/internal/crash"
	"tg-moderator/internal/models"
	"tg-moderator/internal/moderation"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
)

const messageCacheSize = 5000

// botAPI is the part of *telego.Bot the handlers call.
type botAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
	EditMessageReplyMarkup(ctx context.Context, params *telego.EditMessageReplyMarkupParams) (*telego.Message, error)
}

// Sanctioner applies moderation actions; *moderation.Executor implements it.
type Sanctioner interface {
	ApplyBan(ctx context.Context, actor moderation.Actor, targetID int64, variant moderation.BanVariant, reason string) (moderation.Result, error)
	ApplyKick(ctx context.Context, actor moderation.Actor, targetID int64, reason string) (moderation.Result, error)
	ApplyTimeout(ctx context.Context, actor moderation.Actor, targetID int64, choice, reason string) (moderation.Result, error)
	ReverseBan(ctx context.Context, actor moderation.Actor, targetID int64, reason string) (moderation.Result, error)
	Options() moderation.Options
}

type messageKey struct {
	ChatID    int64
	MessageID int
}

// Handler turns Telegram updates into moderation actions and audit events.
type Handler struct {
	api     botAPI
	exec    Sanctioner
	auditor moderation.Auditor
	pending *models.PendingActionManager
	cache   *lru.Cache[messageKey, string]
	cfg     config.ModerationConfig
	opts    moderation.Options
	self    telego.User

	wg sync.WaitGroup
}

// New creates a handler. Durations, timeout choices and wording come from the executor's
// options; cfg supplies the chats. self is the bot's own account, used to match commands
// addressed to it and to tell its bans apart from bans issued by hand.
func New(api botAPI, exec Sanctioner, auditor moderation.Auditor, cfg config.ModerationConfig, self telego.User) (*Handler, error) {
	cache, err := lru.New[messageKey, string](messageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create message cache: %w", err)
	}
	return &Handler{
		api:     api,
		exec:    exec,
		auditor: auditor,
		pending: models.NewPendingActionManager(cfg.PendingTTL),
		cache:   cache,
		cfg:     cfg,
		opts:    exec.Options(),
		self:    self,
	}, nil
}

// Register configures all bot message and update handlers
func (h *Handler) Register(bh *th.BotHandler) {
	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		return h.track("message", func() error {
			return h.onMessage(ctx.Context(), message)
		})
	})

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		return h.track("edited-message", func() error {
			return h.onEditedMessage(ctx.Context(), *update.EditedMessage)
		})
	}, th.AnyEditedMessage())

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		return h.track("chat-member", func() error {
			return h.onChatMember(ctx.Context(), *update.ChatMember)
		})
	}, th.AnyChatMember())

	bh.HandleCallbackQuery(func(ctx *th.Context, query telego.CallbackQuery) error {
		return h.track("callback", func() error {
			return h.onCallbackQuery(ctx.Context(), query)
		})
	})
}

// Wait blocks until every in-flight update handler returns.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// track 记录正在处理的更新以便 Wait 等待，并把 panic 转换为 error，
// 单个异常更新不会导致机器人崩溃
func (h *Handler) track(name string, fn func() error) error {
	h.wg.Add(1)
	defer h.wg.Done()
	return crash.Protect("handler "+name, fn)
}
