package handler

import (
	"context"
	"strconv"
	"strings"

	"tg-moderator/internal/audit"
	"tg-moderator/internal/logger"
	"tg-moderator/internal/moderation"

	"github.com/mymmrac/telego"
)

const unbanCallbackPrefix = "unban:"

func (h *Handler) onCallbackQuery(ctx context.Context, query telego.CallbackQuery) error {
	switch {
	case strings.HasPrefix(query.Data, variantCallbackPrefix):
		return h.onVariantChosen(ctx, query)
	case strings.HasPrefix(query.Data, unbanCallbackPrefix):
		return h.onUnbanClicked(ctx, query)
	default:
		logger.Debugf("Ignoring callback data %q", query.Data)
		h.answer(ctx, query, "", false)
		return nil
	}
}

// onVariantChosen 在发起 /ban 的管理员选择封禁类型后执行封禁
func (h *Handler) onVariantChosen(ctx context.Context, query telego.CallbackQuery) error {
	token, variantName, ok := strings.Cut(strings.TrimPrefix(query.Data, variantCallbackPrefix), ":")
	variant, err := moderation.ParseBanVariant(variantName)
	if !ok || err != nil {
		logger.Warningf("Malformed variant callback %q", query.Data)
		h.answer(ctx, query, "", false)
		return nil
	}

	pending, ok := h.pending.Peek(token)
	if !ok {
		h.answer(ctx, query, h.t("reply_pending_expired"), true)
		h.editPrompt(ctx, query, h.t("reply_pending_expired"))
		return nil
	}
	if pending.ActorID != query.From.ID {
		h.answer(ctx, query, h.t("reply_not_your_request"), true)
		return nil
	}
	// 双击时可能在 Peek 和 Take 之间已被消费
	if pending, ok = h.pending.Take(token); !ok {
		h.answer(ctx, query, h.t("reply_pending_expired"), true)
		return nil
	}

	res, err := h.exec.ApplyBan(ctx, actorFrom(&query.From), pending.TargetID, variant, pending.Reason)
	text := h.outcomeText("ban", pending.TargetID, res, err)
	h.answer(ctx, query, "", false)
	h.editPrompt(ctx, query, text)

	if err == nil && res.Notification == audit.NotificationFailed {
		if msg, ok := query.Message.(*telego.Message); ok {
			h.reply(ctx, *msg, h.t("reply_dm_failed", targetLabel(res.TargetID, res.TargetName)))
		}
	}
	return nil
}

// onUnbanClicked 处理审计日志中封禁记录下的解封按钮
func (h *Handler) onUnbanClicked(ctx context.Context, query telego.CallbackQuery) error {
	targetID, err := strconv.ParseInt(strings.TrimPrefix(query.Data, unbanCallbackPrefix), 10, 64)
	if err != nil {
		logger.Warningf("Malformed unban callback %q", query.Data)
		h.answer(ctx, query, "", false)
		return nil
	}

	res, err := h.exec.ReverseBan(ctx, actorFrom(&query.From), targetID, "")
	text := h.outcomeText("unban", targetID, res, err)
	h.answer(ctx, query, text, err != nil)
	if err != nil {
		return nil
	}

	if msg, ok := query.Message.(*telego.Message); ok {
		_, editErr := h.api.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
			ChatID:      telego.ChatID{ID: msg.Chat.ID},
			MessageID:   msg.MessageID,
			ReplyMarkup: &telego.InlineKeyboardMarkup{},
		})
		if editErr != nil {
			logger.Warningf("Failed to remove unban button: %v", editErr)
		}
	}
	return nil
}

// editPrompt 用结果文本替换选择提示，并移除按钮
func (h *Handler) editPrompt(ctx context.Context, query telego.CallbackQuery, text string) {
	msg, ok := query.Message.(*telego.Message)
	if !ok {
		return
	}
	_, err := h.api.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: msg.Chat.ID},
		MessageID: msg.MessageID,
		Text:      text,
	})
	if err != nil {
		logger.Warningf("Failed to edit ban prompt: %v", err)
	}
}
