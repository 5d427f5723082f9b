package handler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"tg-moderator/internal/audit"
	"tg-moderator/internal/logger"
	"tg-moderator/internal/models"
	"tg-moderator/internal/moderation"

	"github.com/mymmrac/telego"
)

const variantCallbackPrefix = "bv:"

func (h *Handler) onMessage(ctx context.Context, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	if cmd, args, ok := parseCommand(message.Text, h.self.Username); ok {
		return h.onCommand(ctx, message, cmd, args)
	}
	h.cacheMessage(message)
	return nil
}

func (h *Handler) onCommand(ctx context.Context, message telego.Message, cmd string, args []string) error {
	switch cmd {
	case "help", "start":
		h.reply(ctx, message, h.helpText())
		return nil
	case "ban", "kick", "timeout", "unban":
	default:
		return nil
	}

	if !h.commandChat(message.Chat) {
		h.reply(ctx, message, h.t("reply_wrong_chat", h.opts.ServerName))
		return nil
	}

	logger.Infof("Command /%s from %d in chat %d", cmd, message.From.ID, message.Chat.ID)
	switch cmd {
	case "ban":
		h.handleBan(ctx, message, args)
	case "kick":
		h.handleKick(ctx, message, args)
	case "timeout":
		h.handleTimeout(ctx, message, args)
	case "unban":
		h.handleUnban(ctx, message, args)
	}
	return nil
}

// commandChat reports whether moderation commands may run in chat: private chats with the
// bot, the community chat and its mirrors.
func (h *Handler) commandChat(chat telego.Chat) bool {
	if chat.Type == telego.ChatTypePrivate {
		return true
	}
	return chat.ID == h.cfg.ChatID || slices.Contains(h.cfg.ExtraChatIDs, chat.ID)
}

func (h *Handler) helpText() string {
	lines := []string{
		h.t("help_title"),
		"",
		h.t("help_cmd_ban"),
		h.t("help_cmd_kick"),
		h.t("help_cmd_timeout", h.timeoutChoices()),
		h.t("help_cmd_unban"),
		"",
		h.t("help_note"),
	}
	return strings.Join(lines, "\n")
}

// handleBan applies the ban right away when the variant is given as an argument and
// otherwise asks the moderator to pick one.
func (h *Handler) handleBan(ctx context.Context, message telego.Message, args []string) {
	targetID, rest, ok := parseTarget(message, args)
	if !ok {
		h.reply(ctx, message, h.t("reply_usage", "/ban <user id | reply> [standard|spam|blacklist] [reason]"))
		return
	}

	if len(rest) > 0 {
		if variant, err := moderation.ParseBanVariant(strings.ToLower(rest[0])); err == nil {
			res, err := h.exec.ApplyBan(ctx, actorFrom(message.From), targetID, variant, strings.Join(rest[1:], " "))
			h.reply(ctx, message, h.outcomeText("ban", targetID, res, err))
			h.reportNotification(ctx, message, res, err)
			return
		}
	}

	token := h.pending.Add(models.PendingAction{
		ActorID:  message.From.ID,
		TargetID: targetID,
		ChatID:   message.Chat.ID,
		Reason:   strings.Join(rest, " "),
	})

	_, err := h.api.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: message.Chat.ID},
		Text:            h.t("reply_choose_variant", targetLabel(targetID, "")),
		ReplyParameters: &telego.ReplyParameters{MessageID: message.MessageID, AllowSendingWithoutReply: true},
		ReplyMarkup:     &telego.InlineKeyboardMarkup{InlineKeyboard: h.variantKeyboard(token)},
	})
	if err != nil {
		logger.Warningf("Failed to send ban variant prompt: %v", err)
	}
}

func (h *Handler) variantKeyboard(token string) [][]telego.InlineKeyboardButton {
	button := func(text string, variant moderation.BanVariant) []telego.InlineKeyboardButton {
		return []telego.InlineKeyboardButton{{
			Text:         text,
			CallbackData: variantCallbackData(token, variant),
		}}
	}
	return [][]telego.InlineKeyboardButton{
		button(h.t("button_variant_standard", moderation.FormatDuration(h.opts.SanctionDuration)), moderation.BanStandard),
		button(h.t("button_variant_spam"), moderation.BanSpam),
		button(h.t("button_variant_blacklist"), moderation.BanBlacklist),
	}
}

func variantCallbackData(token string, variant moderation.BanVariant) string {
	return fmt.Sprintf("%s%s:%s", variantCallbackPrefix, token, variant)
}

func (h *Handler) handleKick(ctx context.Context, message telego.Message, args []string) {
	targetID, rest, ok := parseTarget(message, args)
	if !ok {
		h.reply(ctx, message, h.t("reply_usage", "/kick <user id | reply> [reason]"))
		return
	}
	res, err := h.exec.ApplyKick(ctx, actorFrom(message.From), targetID, strings.Join(rest, " "))
	h.reply(ctx, message, h.outcomeText("kick", targetID, res, err))
	h.reportNotification(ctx, message, res, err)
}

func (h *Handler) handleTimeout(ctx context.Context, message telego.Message, args []string) {
	targetID, rest, ok := parseTarget(message, args)
	if !ok || len(rest) == 0 {
		h.reply(ctx, message, h.t("reply_usage", fmt.Sprintf("/timeout <user id | reply> <%s> [reason]", h.timeoutChoices())))
		return
	}
	res, err := h.exec.ApplyTimeout(ctx, actorFrom(message.From), targetID, rest[0], strings.Join(rest[1:], " "))
	if err == nil {
		h.reply(ctx, message, h.t("reply_timed_out", targetLabel(targetID, res.TargetName), rest[0], res.Reason))
	} else {
		h.reply(ctx, message, h.outcomeText("timeout", targetID, res, err))
	}
	h.reportNotification(ctx, message, res, err)
}

func (h *Handler) handleUnban(ctx context.Context, message telego.Message, args []string) {
	targetID, rest, ok := parseTarget(message, args)
	if !ok {
		h.reply(ctx, message, h.t("reply_usage", "/unban <user id | reply> [reason]"))
		return
	}
	res, err := h.exec.ReverseBan(ctx, actorFrom(message.From), targetID, strings.Join(rest, " "))
	h.reply(ctx, message, h.outcomeText("unban", targetID, res, err))
}

// outcomeText renders the reply for a finished command. A store failure still means the
// action itself went through, so the moderator gets both lines.
func (h *Handler) outcomeText(command string, targetID int64, res moderation.Result, err error) string {
	label := targetLabel(targetID, res.TargetName)
	var storeErr *moderation.StoreError
	if err != nil && !errors.As(err, &storeErr) {
		return h.replyForError(err, command, label)
	}

	var text string
	switch res.Action {
	case audit.ActionBan:
		text = h.t("reply_banned", label, moderation.FormatDuration(res.Duration), res.Reason)
	case audit.ActionSpamBan:
		text = h.t("reply_spam_banned", label)
	case audit.ActionBlacklist:
		text = h.t("reply_blacklisted", label, res.Reason)
	case audit.ActionKick:
		text = h.t("reply_kicked", label, res.Reason)
	case audit.ActionTimeout:
		text = h.t("reply_timed_out", label, moderation.FormatDuration(res.Duration), res.Reason)
	case audit.ActionUnban:
		text = h.t("reply_unbanned", label, res.Reason)
	}
	if storeErr != nil {
		text += "\n" + h.replyForError(err, command, label)
	}
	return text
}

func (h *Handler) reportNotification(ctx context.Context, message telego.Message, res moderation.Result, err error) {
	var storeErr *moderation.StoreError
	if err != nil && !errors.As(err, &storeErr) {
		return
	}
	if res.Notification == audit.NotificationFailed {
		h.reply(ctx, message, h.t("reply_dm_failed", targetLabel(res.TargetID, res.TargetName)))
	}
}
